package extractionclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionForMimeType(t *testing.T) {
	cases := map[string]string{
		"application/pdf":  ".pdf",
		"text/plain":       ".txt",
		"image/png":        ".png",
		"application/zzzz": "",
	}
	for mime, want := range cases {
		assert.Equal(t, want, extensionForMimeType(mime))
	}
}

func TestIsSupported_EmptyMimeTypes(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, zap.NewNop())
	assert.False(t, c.IsSupported(t.Context(), "", "text/plain"))
	assert.False(t, c.IsSupported(t.Context(), "application/pdf", ""))
}

func TestIsSupported_FailsOpenWhenConfigUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL}, zap.NewNop())
	assert.True(t, c.IsSupported(t.Context(), "application/pdf", "text/plain"))
}

func TestTransform_RespectsRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("converted"))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, RequestsPerSecond: 1000, Burst: 1}, zap.NewNop())
	require.NotNil(t, c.limiter)

	start := time.Now()
	for i := 0; i < 3; i++ {
		out, err := c.Transform(t.Context(), []byte("content"), "application/pdf", "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "converted", string(out))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNew_DefaultsRateLimiterWhenUnset(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, zap.NewNop())
	require.NotNil(t, c.limiter)
	assert.Equal(t, float64(defaultRequestsPerSecond), float64(c.limiter.Limit()))
	assert.Equal(t, defaultBurst, c.limiter.Burst())
}
