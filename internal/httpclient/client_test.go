package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/services/retry"
)

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		w.Write([]byte(`{"price":187.5}`))
	}))
	defer server.Close()

	c := New("test", server.URL, WithHeader("X-Key", "secret"))

	var out struct {
		Price float64 `json:"price"`
	}
	err := c.GetJSON(context.Background(), "/v1/quote", url.Values{"symbol": {"AAPL"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 187.5, out.Price)
}

func TestGetJSON_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header string
		want   retry.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, "7", retry.KindRateLimited},
		{"unauthorized", http.StatusUnauthorized, "", retry.KindFatal},
		{"payment required", http.StatusPaymentRequired, "", retry.KindFatal},
		{"forbidden", http.StatusForbidden, "", retry.KindFatal},
		{"server error", http.StatusBadGateway, "", retry.KindTransient},
		{"not found", http.StatusNotFound, "", retry.KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			c := New("test", server.URL)
			var out map[string]interface{}
			err := c.GetJSON(context.Background(), "/x", nil, &out)
			require.Error(t, err)
			assert.Equal(t, tt.want, retry.Classify(err))
		})
	}
}

func TestGetJSON_RetryAfterHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New("test", server.URL)
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/x", nil, &out)

	var rl *retry.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestGetJSON_AuthErrorsAreDetected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New("test", server.URL)
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/x", nil, &out)
	assert.True(t, retry.IsAuthError(err))
}

func TestGetJSON_ExhaustedQuotaIsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"insufficient_quota","message":"You exceeded your current quota"}}`))
	}))
	defer server.Close()

	c := New("test", server.URL)
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/x", nil, &out)
	assert.True(t, retry.IsAuthError(err))
	assert.Equal(t, retry.KindFatal, retry.Classify(err))
}

func TestGetJSON_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("test", server.URL)
	var out map[string]interface{}
	err := c.GetJSON(ctx, "/x", nil, &out)
	require.Error(t, err)
	assert.Equal(t, retry.KindFatal, retry.Classify(err))
}

func TestPostJSON_SendsBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ping", in["msg"])
		w.Write([]byte(`{"reply":"pong"}`))
	}))
	defer server.Close()

	c := New("test", server.URL)

	var out struct {
		Reply string `json:"reply"`
	}
	err := c.PostJSON(context.Background(), "/v1/echo", map[string]string{"Authorization": "Bearer k"}, map[string]string{"msg": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "pong", out.Reply)
}
