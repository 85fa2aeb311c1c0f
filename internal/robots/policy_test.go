package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAgent = "SydneyEventsBot/1.0"

func TestPolicy_RespectsDisallow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/robots.txt", r.URL.Path)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer srv.Close()

	p := New(context.Background(), srv.URL, testAgent, zap.NewNop())

	require.True(t, p.Allows(srv.URL+"/events"))
	require.False(t, p.Allows(srv.URL+"/private/page"))
}

func TestPolicy_MatchesSpecificAgentGroup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: SydneyEventsBot\nDisallow: /\n\nUser-agent: *\nDisallow:\n"))
	}))
	defer srv.Close()

	p := New(context.Background(), srv.URL, testAgent, zap.NewNop())

	require.False(t, p.Allows(srv.URL+"/events"))
}

func TestPolicy_NotFoundAllowsAll(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(context.Background(), srv.URL, testAgent, zap.NewNop())

	require.True(t, p.Allows(srv.URL+"/anything"))
}

func TestPolicy_UnreachableHostAllowsAll(t *testing.T) {
	t.Parallel()

	// Closed server: the fetch fails and the policy degrades to allow-all.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	p := New(context.Background(), addr, testAgent, zap.NewNop())

	require.True(t, p.Allows(addr+"/anything"))
}

func TestPolicy_NilGroupAllows(t *testing.T) {
	t.Parallel()

	p := &Policy{logger: zap.NewNop()}
	require.True(t, p.Allows("https://example.com/x"))
}

func TestPolicy_QueryStringChecked(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /find/?location=\n"))
	}))
	defer srv.Close()

	p := New(context.Background(), srv.URL, testAgent, zap.NewNop())

	require.False(t, p.Allows(srv.URL+"/find/?location=au--sydney"))
	require.True(t, p.Allows(srv.URL+"/find/"))
}
