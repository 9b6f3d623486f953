package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/kvslot"
	"taskboard/internal/model"
)

func allTasks(t *testing.T, eng *Engine) []model.Task {
	t.Helper()
	var tasks []model.Task
	require.NoError(t, eng.DB().Order("id ASC").Find(&tasks).Error)
	return tasks
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := kvslot.NewMemory()

	src := openTestEngine(t)
	now := time.Now().UTC()
	insertTask(t, src, "alpha", "u1", now)
	insertTask(t, src, "beta", "u2", now.Add(time.Second))
	require.NoError(t, NewSnapshotter(src, slot).Save(ctx))

	dst, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })

	found, err := NewSnapshotter(dst, slot).Load(ctx)
	require.NoError(t, err)
	require.True(t, found)

	want := allTasks(t, src)
	got := allTasks(t, dst)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Description, got[i].Description)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].Priority, got[i].Priority)
		assert.Equal(t, want[i].UserID, got[i].UserID)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt), "created_at should survive the round trip")
		assert.True(t, want[i].UpdatedAt.Equal(got[i].UpdatedAt), "updated_at should survive the round trip")
	}
}

func TestSnapshot_AbsentSlotMeansStartEmpty(t *testing.T) {
	eng := openTestEngine(t)
	found, err := NewSnapshotter(eng, kvslot.NewMemory()).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshot_CorruptPayloadIsAnError(t *testing.T) {
	ctx := context.Background()

	t.Run("not base64", func(t *testing.T) {
		slot := kvslot.NewMemory()
		require.NoError(t, slot.Write(ctx, []byte("!!! not base64 !!!")))
		eng := openTestEngine(t)
		_, err := NewSnapshotter(eng, slot).Load(ctx)
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		slot := kvslot.NewMemory()
		require.NoError(t, slot.Write(ctx, []byte("bm90IGpzb24="))) // "not json"
		eng := openTestEngine(t)
		_, err := NewSnapshotter(eng, slot).Load(ctx)
		require.Error(t, err)
	})
}

func TestSnapshot_WatermarkSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	slot := kvslot.NewMemory()

	src := openTestEngine(t)
	now := time.Now().UTC()
	insertTask(t, src, "one", "u1", now)
	insertTask(t, src, "two", "u1", now)
	highest := insertTask(t, src, "three", "u1", now)

	// Drop the highest row, then snapshot. The watermark must still
	// remember that id 3 was handed out.
	_, err := src.Execute(ctx, "DELETE FROM tasks WHERE id = ?", highest)
	require.NoError(t, err)
	require.NoError(t, NewSnapshotter(src, slot).Save(ctx))

	dst, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { dst.Close() })
	found, err := NewSnapshotter(dst, slot).Load(ctx)
	require.NoError(t, err)
	require.True(t, found)

	next := insertTask(t, dst, "four", "u1", now)
	assert.Greater(t, next, highest, "restored engine must not reuse ids assigned before the restart")
}
