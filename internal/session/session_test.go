package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coffee-desk/internal/tabular"
)

func TestManager(t *testing.T) {
	m := NewManager(0)

	a := m.Open("ann@example.com")
	b := m.Open("ann@example.com")
	require.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, m.Len())
	assert.False(t, a.Catalog.Loaded())
	assert.NotSame(t, a.Catalog, b.Catalog, "catalogs are per session")

	got, ok := m.Get(a.Token)
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, a.Catalog.Load(&tabular.Table{
		Header: []string{"Coffee", "Price"},
		Rows:   [][]string{{"Latte", "4"}},
	}))

	assert.True(t, m.Close(a.Token))
	assert.False(t, a.Catalog.Loaded(), "logout resets the catalog")
	_, ok = m.Get(a.Token)
	assert.False(t, ok)
	assert.False(t, m.Close(a.Token))
	assert.Equal(t, 1, m.Len())
}

func TestManager_IdleExpiry(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	m := NewManager(time.Hour)
	m.now = func() time.Time { return now }

	active := m.Open("ann@example.com")
	idle := m.Open("bob@example.com")
	require.NoError(t, idle.Catalog.Load(&tabular.Table{
		Header: []string{"Coffee", "Price"},
		Rows:   [][]string{{"Latte", "4"}},
	}))

	now = now.Add(40 * time.Minute)
	_, ok := m.Get(active.Token)
	require.True(t, ok, "use refreshes the idle timer")

	now = now.Add(30 * time.Minute)
	m.cleanup(now)
	assert.Equal(t, 1, m.Len())
	assert.False(t, idle.Catalog.Loaded(), "expiry resets the catalog")

	_, ok = m.Get(active.Token)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = m.Get(active.Token)
	assert.False(t, ok, "expired on lookup before the sweep")
	assert.Zero(t, m.Len())
}

func TestManager_RunCleanupDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewManager(0).RunCleanup(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return with expiry disabled")
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	s := &Session{Token: "t", Email: "ann@example.com"}
	got, ok := FromContext(WithSession(ctx, s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
