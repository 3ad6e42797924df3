package pool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlMarentu/mobs-go/pool"
)

type asset struct {
	Name string
}

func TestAssignAndLookup(t *testing.T) {
	p := pool.New[asset]()
	h := p.Assign("fleet:1", &asset{Name: "Tractor"})
	defer h.Release()

	w, ok := p.Lookup("fleet:1")
	require.True(t, ok)
	locked, ok := w.Lock()
	require.True(t, ok)
	require.Equal(t, "Tractor", locked.Value().Name)
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	p := pool.New[asset]()
	_, ok := p.Lookup("absent")
	require.False(t, ok)
}

// Assigning a new value under an occupied name flags the prior
// entry destroyed, visible through any handle still held to it.
func TestAssignReplacesMarksOldEntryDestroyed(t *testing.T) {
	p := pool.New[asset]()
	h1 := p.Assign("fleet:1", &asset{Name: "Old"})
	require.False(t, h1.Destroyed())

	h2 := p.Assign("fleet:1", &asset{Name: "New"})
	defer h2.Release()

	require.True(t, h1.Destroyed())
	h1.Release()
}

func TestSearchReturnsSortedPrefixMatches(t *testing.T) {
	p := pool.New[asset]()
	p.Assign("fleet:2", &asset{Name: "B"}).Release()
	p.Assign("fleet:1", &asset{Name: "A"}).Release()
	p.Assign("other:1", &asset{Name: "C"}).Release()

	matches := p.Search("fleet:")
	require.Len(t, matches, 2)
	require.Equal(t, "fleet:1", matches[0].Name)
	require.Equal(t, "fleet:2", matches[1].Name)
}

// An entry with no outstanding Handle is reclaimed; one
// still held by a caller survives.
func TestClearUnlockedDropsOnlyUnheldEntries(t *testing.T) {
	p := pool.New[asset]()
	p.Assign("idle", &asset{Name: "idle"}).Release()
	held := p.Assign("held", &asset{Name: "held"})
	defer held.Release()

	dropped := p.ClearUnlocked()
	require.Equal(t, 1, dropped)
	require.Equal(t, 1, p.Len())

	_, ok := p.Lookup("idle")
	require.False(t, ok)
	_, ok = p.Lookup("held")
	require.True(t, ok)
}

func TestNamedRefCreateThenExists(t *testing.T) {
	p := pool.New[asset]()
	ref := pool.NewNamedRef(p, "fleet:9")
	require.False(t, ref.Exists())

	h := ref.Create(&asset{Name: "Created"})
	defer h.Release()

	require.True(t, ref.Exists())
	require.Equal(t, "Created", ref.Deref().Name)
}

func TestNamedRefCreateReturnsExistingWhenAlreadyLive(t *testing.T) {
	p := pool.New[asset]()
	first := p.Assign("fleet:9", &asset{Name: "First"})
	defer first.Release()

	ref := pool.NewNamedRef(p, "fleet:9")
	h := ref.Create(&asset{Name: "ShouldNotBeUsed"})
	defer h.Release()

	require.Equal(t, "First", h.Value().Name)
}

func TestNamedRefDerefPanicsWhenAbsent(t *testing.T) {
	p := pool.New[asset]()
	ref := pool.NewNamedRef(p, "missing")
	require.Panics(t, func() { ref.Deref() })
}
