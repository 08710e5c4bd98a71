package upstream_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/upstream"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "localhost:8080", "ftp://files", "http://", "://bad"} {
		_, err := upstream.New(u)
		require.ErrorIs(t, err, upstream.ErrInvalidBaseURL, u)
	}
}

func TestHandler_Forward(t *testing.T) {
	t.Parallel()

	t.Run("forwards method path query headers and body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("X-Seen-Method", r.Method)
			w.Header().Set("X-Seen-Path", r.URL.Path)
			w.Header().Set("X-Seen-Query", r.URL.RawQuery)
			w.Header().Set("X-Seen-Greeting", r.Header.Get("X-Greeting"))
			w.Header().Set("X-Seen-Static", r.Header.Get("X-Gateway"))
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write(body)
		}))
		t.Cleanup(srv.Close)

		h, err := upstream.New(srv.URL, upstream.WithHeaders(map[string]string{"X-Gateway": "gatecache"}))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/items?limit=5", strings.NewReader("payload"))
		req.Header.Set("X-Greeting", "hello")

		resp, err := gateway.BlockingCall(context.Background(), h, req)
		require.NoError(t, err)
		defer resp.Close()

		require.Equal(t, http.StatusAccepted, resp.Status)
		require.Equal(t, http.MethodPost, resp.Header.Get("X-Seen-Method"))
		require.Equal(t, "/items", resp.Header.Get("X-Seen-Path"))
		require.Equal(t, "limit=5", resp.Header.Get("X-Seen-Query"))
		require.Equal(t, "hello", resp.Header.Get("X-Seen-Greeting"))
		require.Equal(t, "gatecache", resp.Header.Get("X-Seen-Static"))
		require.Empty(t, resp.Header.Get("Connection"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "payload", string(body))
	})

	t.Run("keeps percent-encoded path segments", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Seen-URI", r.RequestURI)
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		h, err := upstream.New(srv.URL)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/files/a%2Fb", nil)
		require.Equal(t, "/files/a/b", req.URL.Path)

		resp, err := gateway.BlockingCall(context.Background(), h, req)
		require.NoError(t, err)
		defer resp.Close()

		require.Equal(t, http.StatusOK, resp.Status)
		require.Equal(t, "/files/a%2Fb", resp.Header.Get("X-Seen-URI"))
	})

	t.Run("does not follow redirects", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
		}))
		t.Cleanup(srv.Close)

		h, err := upstream.New(srv.URL)
		require.NoError(t, err)

		resp, err := gateway.BlockingCall(context.Background(), h, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		defer resp.Close()
		require.Equal(t, http.StatusFound, resp.Status)
		require.Equal(t, "/elsewhere", resp.Header.Get("Location"))
	})

	t.Run("unreachable upstream becomes 502", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		h, err := upstream.New(url)
		require.NoError(t, err)

		resp, err := gateway.BlockingCall(context.Background(), h, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadGateway, resp.Status)
		require.ErrorIs(t, resp.Cause, upstream.ErrUpstream)
	})
}
