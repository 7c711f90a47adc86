package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetForwardsQueryAndToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory/positions" || r.URL.Query().Get("bin") != "A1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("X-Correlation-Id") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sku":"S-1","qty":4}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "secret", time.Second, server.Client())
	body, err := c.Get(context.Background(), "/inventory/positions", url.Values{"bin": {"A1"}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"sku":"S-1","qty":4}]`, string(body))
}

func TestClient_SendPostsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var in map[string]any
		_ = json.Unmarshal(raw, &in)
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"received":%q}`, in["sku"])
	}))
	defer server.Close()

	c := NewClient(server.URL, "", time.Second, server.Client())
	out, err := c.Send(context.Background(), http.MethodPost, "/inventory/adjustments", json.RawMessage(`{"sku":"S-9","delta":-2}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"received":"S-9"}`, string(out))
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conflict":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":"insufficient_stock","message":"only 2 left"}`))
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()
	c := NewClient(server.URL, "", 50*time.Millisecond, server.Client())

	_, err := c.Get(context.Background(), "/conflict", nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, "insufficient_stock", httpErr.Code)
	assert.False(t, IsFallbackEligible(err))

	_, err = c.Get(context.Background(), "/down", nil)
	require.Error(t, err)
	assert.True(t, IsFallbackEligible(err))

	_, err = c.Get(context.Background(), "/slow", nil)
	require.Error(t, err)
	assert.True(t, IsFallbackEligible(err), "a per-call timeout is a transport failure")
}

func TestClient_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	c := NewClient(base, "", time.Second, nil)
	_, err := c.Get(context.Background(), "/orders", nil)
	require.Error(t, err)
	assert.True(t, IsFallbackEligible(err))
}

func TestIsFallbackEligible_Canceled(t *testing.T) {
	assert.False(t, IsFallbackEligible(nil))
	assert.False(t, IsFallbackEligible(fmt.Errorf("get: %w", context.Canceled)))
	assert.True(t, IsFallbackEligible(&HTTPError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsFallbackEligible(&HTTPError{StatusCode: http.StatusNotFound}))
}
