// File: internal/rpc/client_test.go
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkaelum/harrier/api/schemas"
)

func clientFor(ts *httptest.Server) *Client {
	return &Client{baseURL: ts.URL, httpClient: ts.Client()}
}

func TestClientCall(t *testing.T) {
	t.Run("decodes the data payload", func(t *testing.T) {
		ts := newTestServer(t, func(_ context.Context, method string, _ json.RawMessage) (any, error) {
			return map[string]any{"url": "https://example.com", "title": "Example"}, nil
		})

		var out struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		}
		err := clientFor(ts).Call(context.Background(), "scrape", map[string]string{"url": "https://example.com"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "Example", out.Title)
	})

	t.Run("failure envelope becomes a coded error", func(t *testing.T) {
		ts := newTestServer(t, func(context.Context, string, json.RawMessage) (any, error) {
			return nil, schemas.NewError(schemas.ErrCodeNotFound, "no such profile")
		})

		err := clientFor(ts).Call(context.Background(), "get_captcha", nil, nil)
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeNotFound, schemas.CodeOf(err))
		assert.Contains(t, err.Error(), "no such profile")
	})

	t.Run("nil out discards the payload", func(t *testing.T) {
		ts := newTestServer(t, func(context.Context, string, json.RawMessage) (any, error) {
			return map[string]string{"ignored": "yes"}, nil
		})
		require.NoError(t, clientFor(ts).Call(context.Background(), "test", nil, nil))
	})
}

func TestClientClassifiesConnectionRefused(t *testing.T) {
	// Occupy a port, then release it so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	c := NewClient(port)
	err = c.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, schemas.ErrCodeConnectionRefused, schemas.CodeOf(err))
	assert.True(t, schemas.CodeOf(err).CrashSymptom())
}

func TestClientClassifiesCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// notice the client disconnect; otherwise r.Context() never fires
		// and ts.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer ts.Close()

	c := &Client{baseURL: ts.URL, httpClient: ts.Client()}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Call(ctx, "test", nil, nil)
	require.Error(t, err)
	assert.Equal(t, schemas.ErrCodeContextCanceled, schemas.CodeOf(err))
}

func TestServerClientRoundTrip(t *testing.T) {
	// Full stack: real listener, real client, typed error across the wire.
	s := NewServer(0, &fakeDispatcher{fn: func(_ context.Context, method string, params json.RawMessage) (any, error) {
		if method == schemas.MethodTest {
			return map[string]string{"status": "ok"}, nil
		}
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown method %q", method)
	}}, zaptest.NewLogger(t))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	c := clientFor(ts)

	require.NoError(t, c.Health(context.Background()))

	err := c.Call(context.Background(), "nope", nil, nil)
	require.Error(t, err)
	assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
}
