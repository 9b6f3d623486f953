package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"taskboard/internal/kvslot"
	"taskboard/internal/model"
)

const snapshotVersion = 1

// snapshot is the full serialized engine state: every row plus the id
// watermark, so restored engines keep allocating strictly increasing ids.
type snapshot struct {
	Version int          `json:"version"`
	LastID  int64        `json:"last_id"`
	Tasks   []model.Task `json:"tasks"`
}

// Snapshotter serializes the engine's complete state into a durable slot
// and reconstructs it from there. There is no diffing and no retention:
// Save overwrites the slot wholesale every time.
type Snapshotter struct {
	eng  *Engine
	slot kvslot.Slot
}

// NewSnapshotter binds an engine to its durable slot.
func NewSnapshotter(eng *Engine, slot kvslot.Slot) *Snapshotter {
	return &Snapshotter{eng: eng, slot: slot}
}

// Save exports the engine state, encodes it as base64-wrapped JSON and
// overwrites the slot.
func (s *Snapshotter) Save(ctx context.Context) error {
	var tasks []model.Task
	if err := s.eng.DB().WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return fmt.Errorf("export tasks: %w", err)
	}
	lastID, err := s.watermark(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snapshot{Version: snapshotVersion, LastID: lastID, Tasks: tasks})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(payload)))
	base64.StdEncoding.Encode(encoded, payload)
	if err := s.slot.Write(ctx, encoded); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Load reads the slot and rebuilds the engine state from it. An absent
// slot means "start empty" and returns (false, nil). A present but
// undecodable value is an error: the caller must not fall back to an
// empty database over live data.
func (s *Snapshotter) Load(ctx context.Context) (bool, error) {
	encoded, ok, err := s.slot.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	payload := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(payload, encoded)
	if err != nil {
		return false, fmt.Errorf("corrupt snapshot encoding: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(payload[:n], &snap); err != nil {
		return false, fmt.Errorf("corrupt snapshot payload: %w", err)
	}
	if snap.Version != snapshotVersion {
		return false, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if err := s.eng.EnsureSchema(ctx); err != nil {
		return false, err
	}
	for _, t := range snap.Tasks {
		_, err := s.eng.Execute(ctx,
			`INSERT INTO tasks (id, title, description, status, priority, user_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.UserID, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return false, fmt.Errorf("restore task %d: %w", t.ID, err)
		}
	}
	if err := s.bumpWatermark(ctx, snap.LastID); err != nil {
		return false, err
	}
	return true, nil
}

// watermark reads the highest id the engine has ever assigned.
func (s *Snapshotter) watermark(ctx context.Context) (int64, error) {
	rows, err := s.eng.Query(ctx, "SELECT seq FROM sqlite_sequence WHERE name = ?", "tasks")
	if err != nil {
		return 0, fmt.Errorf("read id watermark: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return toInt64(rows[0]["seq"]), nil
}

// bumpWatermark raises the sequence so the next insert outbids every id
// the previous engine instance ever assigned, inserted rows included.
func (s *Snapshotter) bumpWatermark(ctx context.Context, lastID int64) error {
	current, err := s.watermark(ctx)
	if err != nil {
		return err
	}
	if lastID <= current {
		return nil
	}
	res, err := s.eng.Execute(ctx, "UPDATE sqlite_sequence SET seq = ? WHERE name = ?", lastID, "tasks")
	if err != nil {
		return fmt.Errorf("bump id watermark: %w", err)
	}
	if res.RowsAffected == 0 {
		if _, err := s.eng.Execute(ctx, "INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", "tasks", lastID); err != nil {
			return fmt.Errorf("seed id watermark: %w", err)
		}
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
