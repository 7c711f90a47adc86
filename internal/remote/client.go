package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPError is an application-level answer from the remote API (non-2xx status).
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Unavailable reports statuses that mean the server could not handle the request right now.
func (e *HTTPError) Unavailable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsFallbackEligible reports whether a failed read may be answered from stale cache:
// transport failures and unavailable-server answers qualify, application errors do not.
// A cancellation by the caller is never eligible.
func IsFallbackEligible(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Unavailable()
	}
	return true
}

// Client talks JSON to the remote warehouse API. It makes exactly one attempt per call;
// retrying is the outbox's job.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(baseURL, token string, timeout time.Duration, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:9000"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Get performs a read
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	requestPath := endpoint
	if len(params) > 0 {
		requestPath += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, requestPath, nil)
}

// Send performs a mutation with a JSON body
func (c *Client) Send(ctx context.Context, method, endpoint string, body json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, method, endpoint, body)
}

func (c *Client) do(ctx context.Context, method, requestPath string, body json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-Id", "sync_"+uuid.NewString())
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, requestPath, err)
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, requestPath, readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if len(bytes.TrimSpace(payload)) == 0 {
			return nil, nil
		}
		if !json.Valid(payload) {
			return nil, fmt.Errorf("%s %s: response is not JSON", method, requestPath)
		}
		return json.RawMessage(payload), nil
	}

	var errPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(payload, &errPayload)
	message := errPayload.Message
	if message == "" {
		message = errPayload.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return nil, &HTTPError{
		StatusCode: resp.StatusCode,
		Code:       errPayload.Code,
		Message:    message,
	}
}
