package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Prober turns periodic HTTP reachability checks of the remote API into Monitor signals.
type Prober struct {
	monitor  *Monitor
	url      string
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// ProberOptions configures a Prober
type ProberOptions struct {
	BaseURL    string
	HealthPath string
	Interval   time.Duration
	Timeout    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

func NewProber(monitor *Monitor, opts ProberOptions) *Prober {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		monitor:  monitor,
		url:      strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/") + opts.HealthPath,
		client:   client,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check performs one probe. Any HTTP answer below 500 counts as reachable.
func (p *Prober) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health probe: http %d", resp.StatusCode)
	}
	return nil
}

// ProbeOnce checks reachability and feeds the result to the monitor
func (p *Prober) ProbeOnce(ctx context.Context) bool {
	err := p.Check(ctx)
	if ctx.Err() != nil {
		// shutting down, not a reachability signal
		return p.monitor.Online()
	}
	if p.monitor.Set(err == nil) {
		if err != nil {
			p.logger.Warn("remote API unreachable", "url", p.url, "error", err)
		} else {
			p.logger.Info("remote API reachable", "url", p.url)
		}
	}
	return err == nil
}

// Run probes immediately and then every interval until ctx is done
func (p *Prober) Run(ctx context.Context) {
	p.ProbeOnce(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProbeOnce(ctx)
		}
	}
}
