package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSourceValid(t *testing.T) {
	t.Parallel()

	for _, s := range AllSources() {
		require.True(t, s.Valid(), s)
	}
	require.False(t, Source("myspace").Valid())
	require.False(t, Source("").Valid())
}

func TestFilterNormalized(t *testing.T) {
	t.Parallel()

	f := Filter{}.Normalized()
	require.Equal(t, 1, f.Page)
	require.Equal(t, DefaultPageSize, f.PageSize)

	f = Filter{Page: -3, PageSize: 1000}.Normalized()
	require.Equal(t, 1, f.Page)
	require.Equal(t, MaxPageSize, f.PageSize)

	f = Filter{Page: 4, PageSize: 50}.Normalized()
	require.Equal(t, 4, f.Page)
	require.Equal(t, 50, f.PageSize)
}

func TestEventExpired(t *testing.T) {
	t.Parallel()

	var e Event
	require.False(t, e.Expired())

	stamp := time.Now()
	e.ExpiresAt = &stamp
	require.True(t, e.Expired())
}
