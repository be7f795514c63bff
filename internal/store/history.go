package store

import (
	"github.com/google/uuid"

	"realtime-canvas/internal/model"
)

const defaultHistoryDepth = 100

// HistoryEntry records the before/after snapshots of one undoable step. A
// nil snapshot is a tombstone: the object did not exist (before) or was
// deleted (after).
type HistoryEntry struct {
	ID        string
	Label     string
	Timestamp int64
	Before    map[string]*model.CanvasObject
	After     map[string]*model.CanvasObject
}

func newEntry(label string) *HistoryEntry {
	return &HistoryEntry{
		ID:        uuid.NewString(),
		Label:     label,
		Timestamp: model.NowMillis(),
		Before:    make(map[string]*model.CanvasObject),
		After:     make(map[string]*model.CanvasObject),
	}
}

// historyLog is the bounded undo/redo stack pair. Callers hold the store
// mutex.
type historyLog struct {
	undo  []*HistoryEntry
	redo  []*HistoryEntry
	batch *HistoryEntry
	depth int
}

func newHistoryLog(depth int) *historyLog {
	if depth <= 0 {
		depth = defaultHistoryDepth
	}
	return &historyLog{depth: depth}
}

// record captures one mutation. While a batch is open it accumulates into
// the batch: only the first before-snapshot and the latest after-snapshot
// per id are kept, so the batch undoes as one atomic step.
func (h *historyLog) record(label, id string, before, after *model.CanvasObject) {
	if h.batch != nil {
		if _, seen := h.batch.Before[id]; !seen {
			h.batch.Before[id] = before
		}
		h.batch.After[id] = after
		return
	}
	entry := newEntry(label)
	entry.Before[id] = before
	entry.After[id] = after
	h.push(entry)
}

// push appends to the undo stack, dropping the oldest entry beyond the
// depth, and clears the redo stack.
func (h *historyLog) push(entry *HistoryEntry) {
	h.undo = append(h.undo, entry)
	if len(h.undo) > h.depth {
		h.undo = h.undo[1:]
	}
	h.redo = nil
}

func (h *historyLog) popUndo() *HistoryEntry {
	if len(h.undo) == 0 {
		return nil
	}
	entry := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return entry
}

func (h *historyLog) popRedo() *HistoryEntry {
	if len(h.redo) == 0 {
		return nil
	}
	entry := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return entry
}

// BeginBatch opens an accumulation window: Sync mutations issued until
// CommitBatch append to one entry instead of pushing individually.
func (s *Store) BeginBatch(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.batch == nil {
		s.history.batch = newEntry(label)
	}
}

// CommitBatch closes the window. Committing with zero recorded changes is a
// no-op.
func (s *Store) CommitBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.history.batch
	s.history.batch = nil
	if batch == nil || len(batch.Before) == 0 {
		return
	}
	s.history.push(batch)
}

// CanUndo reports whether the undo stack is non-empty.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.undo) > 0
}

// CanRedo reports whether the redo stack is non-empty.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.redo) > 0
}

// HistoryDepths returns (undo, redo) stack sizes.
func (s *Store) HistoryDepths() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.undo), len(s.history.redo)
}

// Undo reverts the top history entry by reapplying its before-snapshots.
// Restored objects get a freshly bumped version and timestamp so the undo is
// itself a valid LWW-winning mutation for other clients. The entry moves to
// the redo stack.
func (s *Store) Undo() bool {
	return s.applyHistory(true)
}

// Redo reapplies the top redo entry using its after-snapshots.
func (s *Store) Redo() bool {
	return s.applyHistory(false)
}

type historyAction struct {
	op  string // create, update, delete
	id  string
	obj *model.CanvasObject
}

func (s *Store) applyHistory(undo bool) bool {
	now := model.NowMillis()

	s.mu.Lock()
	var entry *HistoryEntry
	if undo {
		entry = s.history.popUndo()
	} else {
		entry = s.history.popRedo()
	}
	if entry == nil {
		s.mu.Unlock()
		return false
	}

	snapshots := entry.Before
	if !undo {
		snapshots = entry.After
	}

	var actions []historyAction
	for id, snap := range snapshots {
		cur, exists := s.objects[id]
		if snap == nil {
			// Object should not exist at this point in time.
			if exists {
				delete(s.objects, id)
				delete(s.selected, id)
				actions = append(actions, historyAction{op: "delete", id: id})
			}
			continue
		}

		restored := snap.Clone()
		if exists {
			restored.Version = cur.Version + 1
		} else {
			restored.Version = snap.Version + 1
		}
		restored.UpdatedAt = now
		restored.UpdatedBy = s.userID
		s.objects[id] = restored

		op := "update"
		if !exists {
			op = "create"
		}
		actions = append(actions, historyAction{op: op, id: id, obj: restored.Clone()})
	}

	if undo {
		s.history.redo = append(s.history.redo, entry)
	} else {
		s.history.undo = append(s.history.undo, entry)
		if len(s.history.undo) > s.history.depth {
			s.history.undo = s.history.undo[1:]
		}
	}
	s.mu.Unlock()

	for _, a := range actions {
		switch a.op {
		case "delete":
			s.emit(model.LiveMessage{Type: model.MsgObjectDelete, ID: a.id})
			if s.persist != nil {
				s.persist.EnqueueDelete(a.id)
			}
		case "create":
			s.emit(model.LiveMessage{Type: model.MsgObjectCreate, Object: a.obj})
			if s.persist != nil {
				s.persist.EnqueueInsert(a.obj)
			}
		case "update":
			s.emit(model.LiveMessage{Type: model.MsgObjectUpdate, Object: a.obj})
			if s.persist != nil {
				s.persist.EnqueueUpdate(a.id, model.FullPatch(a.obj))
			}
		}
	}
	return true
}
