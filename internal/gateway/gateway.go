package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"warehouse-sync-agent/internal/cache"
	"warehouse-sync-agent/internal/remote"
)

// Remote is the slice of the remote API client the gateway needs.
type Remote interface {
	Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
	Send(ctx context.Context, method, endpoint string, body json.RawMessage) (json.RawMessage, error)
}

// Options controls construction of a Gateway.
type Options struct {
	Remote     Remote
	Cache      cache.Cache
	DefaultTTL time.Duration
	// WriteSensitivePrefixes are the endpoint prefixes invalidated after every write.
	WriteSensitivePrefixes []string
	Logger                 *slog.Logger
	Now                    func() time.Time
}

// Gateway wraps every outbound request: reads are served from cache when fresh and fall back
// to stale cache on transport failure; writes invalidate the write-sensitive cache entries.
type Gateway struct {
	remote     Remote
	cache      cache.Cache
	defaultTTL time.Duration
	prefixes   []string
	logger     *slog.Logger
	now        func() time.Time
}

func New(opts Options) (*Gateway, error) {
	if opts.Remote == nil {
		return nil, errors.New("gateway: remote client is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("gateway: cache is required")
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		remote:     opts.Remote,
		cache:      opts.Cache,
		defaultTTL: ttl,
		prefixes:   append([]string(nil), opts.WriteSensitivePrefixes...),
		logger:     logger,
		now:        now,
	}, nil
}

// ReadRequest describes a GET against the remote API.
type ReadRequest struct {
	Endpoint string
	Params   url.Values
	// UseCache defaults to true when nil.
	UseCache *bool
	// TTL overrides the default TTL for the populated entry.
	TTL time.Duration
}

// Response is the outcome of a read.
type Response struct {
	Body json.RawMessage `json:"body"`
	// FromCache is set when the body did not come from the network on this call.
	FromCache bool `json:"fromCache"`
	// Stale is set when a fallback served an entry past its TTL.
	Stale    bool      `json:"stale"`
	StoredAt time.Time `json:"storedAt,omitempty"`
}

// Bool returns a pointer to b, for ReadRequest.UseCache.
func Bool(b bool) *bool { return &b }

// Read serves req from cache or the network.
func (g *Gateway) Read(ctx context.Context, req ReadRequest) (Response, error) {
	key := cache.Key(req.Endpoint, req.Params)
	useCache := req.UseCache == nil || *req.UseCache

	// captured before Get so that a lazily purged entry can still serve as fallback
	stale, hasStale := g.cache.Peek(ctx, key)

	if useCache {
		if body, ok := g.cache.Get(ctx, key); ok {
			return Response{Body: body, FromCache: true, StoredAt: stale.StoredAt}, nil
		}
	}

	body, err := g.remote.Get(ctx, cache.Endpoint(key), req.Params)
	if err != nil {
		if hasStale && remote.IsFallbackEligible(err) {
			g.logger.Warn("serving cached response after failed read", "key", key, "error", err)
			return Response{
				Body:      stale.Value,
				FromCache: true,
				Stale:     stale.Expired(g.now()),
				StoredAt:  stale.StoredAt,
			}, nil
		}
		return Response{}, fmt.Errorf("read %s: %w", key, err)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = g.defaultTTL
	}
	if err := g.cache.Set(ctx, key, body, ttl); err != nil {
		g.logger.Warn("response not cached", "key", key, "error", err)
	}
	return Response{Body: body, StoredAt: g.now()}, nil
}

// WriteRequest describes a mutation against the remote API.
type WriteRequest struct {
	// Method defaults to POST.
	Method   string
	Endpoint string
	Body     json.RawMessage
}

// Write sends req to the network, never to the cache. Cached reads under the
// write-sensitive prefixes are invalidated afterwards, whether or not the write succeeded.
func (g *Gateway) Write(ctx context.Context, req WriteRequest) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	out, err := g.remote.Send(ctx, method, req.Endpoint, req.Body)
	g.invalidate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.Endpoint, err)
	}
	return out, nil
}

func (g *Gateway) invalidate(ctx context.Context) {
	if len(g.prefixes) == 0 {
		return
	}
	// invalidation must run even if the write's context is already done
	ctx = context.WithoutCancel(ctx)
	removed, err := g.cache.ClearMatching(ctx, func(key string) bool {
		for _, prefix := range g.prefixes {
			if cache.HasEndpointPrefix(key, prefix) {
				return true
			}
		}
		return false
	})
	if err != nil {
		g.logger.Error("cache invalidation failed", "error", err)
		return
	}
	if removed > 0 {
		g.logger.Debug("cache invalidated after write", "removed", removed)
	}
}
