package state

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/vss-synth/internal/value"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err, "NewStore")
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTree(t *testing.T, speed int64) Tree {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.Set("Vehicle.children.Speed", value.Int(speed)))
	require.NoError(t, b.Set("Vehicle.children.Level", value.FloatOf(42.5)))
	return b.Tree()
}

func TestCommitAndGetCurrent(t *testing.T) {
	s := tempDB(t)

	rec, err := s.CommitSnapshot(SnapshotRecord{
		Unit:      1,
		Seq:       1,
		State:     sampleTree(t, 10),
		PatchJSON: `[{"op":"add","path":"/Vehicle","value":{}}]`,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.VersionID)
	assert.False(t, rec.CreatedAt.IsZero())

	cur, err := s.GetCurrent(1)
	require.NoError(t, err)
	assert.Equal(t, rec.VersionID, cur.VersionID)
	assert.Empty(t, cur.ParentID)
	assert.Equal(t, 1, cur.Seq)
	assert.True(t, cur.State.Equal(rec.State), "state round trip keeps kinds")

	level, ok := cur.State.Get("Vehicle.Level")
	require.True(t, ok)
	assert.Equal(t, value.Float, level.Kind())
}

func TestGetCurrentMissingUnit(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetCurrent(7)
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestActivePointerFollowsLatestCommit(t *testing.T) {
	s := tempDB(t)

	v1, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 1, State: sampleTree(t, 1)})
	require.NoError(t, err)
	v2, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 2, ParentID: v1.VersionID, State: sampleTree(t, 2)})
	require.NoError(t, err)
	_, err = s.CommitSnapshot(SnapshotRecord{Unit: 2, Seq: 1, State: sampleTree(t, 3)})
	require.NoError(t, err)

	cur, err := s.GetCurrent(1)
	require.NoError(t, err)
	assert.Equal(t, v2.VersionID, cur.VersionID)
	assert.Equal(t, v1.VersionID, cur.ParentID)

	units, err := s.Units()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, units)
}

func TestCommitRejectsDuplicateSeq(t *testing.T) {
	s := tempDB(t)
	_, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 1, State: Empty()})
	require.NoError(t, err)
	_, err = s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 1, State: Empty()})
	assert.Error(t, err)
}

func TestCommitHookSharesTransaction(t *testing.T) {
	s := tempDB(t)
	var seen SnapshotRecord
	rec, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 1, State: Empty()}, func(tx *sql.Tx, r SnapshotRecord) error {
		seen = r
		var n int
		require.NoError(t, tx.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE version_id = ?`, r.VersionID).Scan(&n))
		assert.Equal(t, 1, n, "row visible inside the transaction")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, rec.VersionID, seen.VersionID)
	assert.Equal(t, rec.CreatedAt, seen.CreatedAt)
}

func TestCommitHookErrorRollsBack(t *testing.T) {
	s := tempDB(t)
	boom := errors.New("boom")
	_, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 1, State: Empty()}, func(*sql.Tx, SnapshotRecord) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetCurrent(1)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	versions, err := s.ListVersions(1, 10)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestCommitRejectsUnknownParent(t *testing.T) {
	s := tempDB(t)
	_, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 2, ParentID: "missing", State: Empty()})
	assert.Error(t, err, "foreign key on parent_id")
}

func TestLineageOldestFirst(t *testing.T) {
	s := tempDB(t)

	var parent string
	var ids []string
	for seq := 1; seq <= 4; seq++ {
		rec, err := s.CommitSnapshot(SnapshotRecord{
			Unit:      3,
			Seq:       seq,
			ParentID:  parent,
			State:     sampleTree(t, int64(seq)),
			CreatedAt: time.Date(2026, 1, 1, 0, 0, seq, 0, time.UTC),
		})
		require.NoError(t, err)
		parent = rec.VersionID
		ids = append(ids, rec.VersionID)
	}

	chain, err := s.Lineage(ids[2])
	require.NoError(t, err)
	require.Len(t, chain, 3)
	for i, rec := range chain {
		assert.Equal(t, ids[i], rec.VersionID)
		assert.Equal(t, i+1, rec.Seq)
	}

	_, err = s.Lineage("nope")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestListVersionsFilterAndLimit(t *testing.T) {
	s := tempDB(t)
	for unit := 1; unit <= 2; unit++ {
		var parent string
		for seq := 1; seq <= 3; seq++ {
			rec, err := s.CommitSnapshot(SnapshotRecord{
				Unit:      unit,
				Seq:       seq,
				ParentID:  parent,
				State:     Empty(),
				CreatedAt: time.Date(2026, 1, 1, unit, seq, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			parent = rec.VersionID
		}
	}

	all, err := s.ListVersions(0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	unit1, err := s.ListVersions(1, 2)
	require.NoError(t, err)
	require.Len(t, unit1, 2)
	assert.Equal(t, 3, unit1[0].Seq, "newest first")
	assert.Equal(t, 1, unit1[0].Unit)
	assert.Empty(t, unit1[0].Trigger, "no generation_log row")
}

func TestReset(t *testing.T) {
	s := tempDB(t)
	v1, err := s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 1, State: Empty()})
	require.NoError(t, err)
	_, err = s.CommitSnapshot(SnapshotRecord{Unit: 1, Seq: 2, ParentID: v1.VersionID, State: Empty()})
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	units, err := s.Units()
	require.NoError(t, err)
	assert.Empty(t, units)
	_, err = s.GetVersion(v1.VersionID)
	assert.Error(t, err)
}
