package registry

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sqladvisor/pkg/analyzer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "advisor.db"), zerolog.Nop())
}

func TestStoreWorkspace(t *testing.T) {
	s := newTestStore(t)

	cards, err := s.LoadWorkspace()
	require.NoError(t, err)
	assert.Empty(t, cards)

	require.NoError(t, s.SaveWorkspace(Demo()))
	cards, err = s.LoadWorkspace()
	require.NoError(t, err)
	assert.Equal(t, Demo(), cards)

	// saving again replaces rather than appends
	require.NoError(t, s.SaveWorkspace(Demo()[1:]))
	cards, err = s.LoadWorkspace()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Orders", cards[0].Table)
}

func TestStoreHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	reg := NewWorkspace(Demo()...).Snapshot()

	queries := []string{"SELECT * FROM Customers", "SELECT * FROM Orders", DemoQuery}
	for _, q := range queries {
		bundle, err := analyzer.Analyze(q, reg)
		require.NoError(t, err)
		require.NoError(t, s.AppendHistory(NewHistoryRecord(q, reg, bundle)))
	}

	all, err := s.History(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, DemoQuery, all[0].SQL)
	assert.Equal(t, "SELECT * FROM Customers", all[2].SQL)

	_, err = uuid.Parse(all[0].ID)
	assert.NoError(t, err)
	assert.NotEqual(t, all[0].ID, all[1].ID)

	recent, err := s.History(2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestFingerprint(t *testing.T) {
	reg := NewWorkspace(Demo()...).Snapshot()

	a := Fingerprint("SELECT 1", reg)
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("  SELECT 1\n", reg))
	assert.NotEqual(t, a, Fingerprint("SELECT 1", analyzer.Registry{}))
	assert.NotEqual(t, a, Fingerprint("SELECT 2", reg))
}
