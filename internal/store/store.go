// Package store owns the authoritative in-memory object map for one board
// session. All mutations are synchronous and optimistic: the local map is
// updated first, then a broadcast and a fire-and-forget persistence write are
// emitted. No component outside the store mutates the map.
package store

import (
	"sync"

	"github.com/google/uuid"

	"realtime-canvas/internal/model"
)

const pasteOffset = 20

// Broadcaster receives outbound live-channel messages produced by Sync
// mutations.
type Broadcaster interface {
	Broadcast(msg model.LiveMessage)
}

// PersistSink receives fire-and-forget persistence commands.
type PersistSink interface {
	EnqueueInsert(obj *model.CanvasObject)
	EnqueueUpdate(id string, patch model.Patch)
	EnqueueDelete(id string)
	EnqueueDeleteMany(ids []string)
}

// Store is the per-board object store plus selection, clipboard and tool
// state. A mutex guards the map because channel handlers run in their own
// goroutines; every mutation is atomic with respect to reads.
type Store struct {
	boardID string
	userID  string

	mu         sync.RWMutex
	objects    map[string]*model.CanvasObject
	selected   map[string]bool
	clipboard  []*model.CanvasObject
	activeTool string

	history *historyLog

	persist PersistSink

	// Broadcaster indirection: the live channel is initialized
	// independently of the store, so messages produced before it is ready
	// are queued and flushed on SetBroadcaster.
	bmu         sync.Mutex
	broadcaster Broadcaster
	pending     []model.LiveMessage
}

// NewStore creates the store for one board session.
func NewStore(boardID, userID string) *Store {
	return &Store{
		boardID:  boardID,
		userID:   userID,
		objects:  make(map[string]*model.CanvasObject),
		selected: make(map[string]bool),
		history:  newHistoryLog(defaultHistoryDepth),
	}
}

// SetPersistSink wires the persistence queue. May be left nil in tests.
func (s *Store) SetPersistSink(p PersistSink) {
	s.mu.Lock()
	s.persist = p
	s.mu.Unlock()
}

// SetBroadcaster wires the live channel and flushes any queued messages.
func (s *Store) SetBroadcaster(b Broadcaster) {
	s.bmu.Lock()
	s.broadcaster = b
	pending := s.pending
	s.pending = nil
	s.bmu.Unlock()

	for _, msg := range pending {
		b.Broadcast(msg)
	}
}

func (s *Store) emit(msg model.LiveMessage) {
	msg.SenderID = s.userID
	s.bmu.Lock()
	b := s.broadcaster
	if b == nil {
		s.pending = append(s.pending, msg)
		s.bmu.Unlock()
		return
	}
	s.bmu.Unlock()
	b.Broadcast(msg)
}

// BoardID returns the board this store is scoped to.
func (s *Store) BoardID() string { return s.boardID }

// UserID returns the local user id used as sender id on broadcasts.
func (s *Store) UserID() string { return s.userID }

// Get returns a copy of one object.
func (s *Store) Get(id string) (*model.CanvasObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// Snapshot returns a copy of the whole object map.
func (s *Store) Snapshot() map[string]*model.CanvasObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]*model.CanvasObject, len(s.objects))
	for id, obj := range s.objects {
		snap[id] = obj.Clone()
	}
	return snap
}

// Len returns the number of live objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Add inserts an object if absent. Used by the sync layer for remote
// creates; idempotent against duplicate inserts.
func (s *Store) Add(obj *model.CanvasObject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[obj.ID]; exists {
		return false
	}
	s.objects[obj.ID] = obj.Clone()
	return true
}

// AddSync inserts an object, records history and emits the create broadcast
// plus the persistence write. Duplicate ids are a no-op (self-echo safety).
func (s *Store) AddSync(obj *model.CanvasObject) bool {
	now := model.NowMillis()

	s.mu.Lock()
	if _, exists := s.objects[obj.ID]; exists {
		s.mu.Unlock()
		return false
	}
	stored := obj.Clone()
	stored.BoardID = s.boardID
	stored.UpdatedBy = s.userID
	stored.UpdatedAt = now
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.objects[stored.ID] = stored
	s.history.record("create", stored.ID, nil, stored.Clone())
	snapshot := stored.Clone()
	s.mu.Unlock()

	s.emit(model.LiveMessage{Type: model.MsgObjectCreate, Object: snapshot})
	if s.persist != nil {
		s.persist.EnqueueInsert(snapshot)
	}
	return true
}

// Update shallow-merges top-level fields and deep-merges props without
// bumping the version. Used by the sync layer to apply remote partials.
// Missing ids are a no-op, the object may have been deleted by a race.
func (s *Store) Update(id string, patch model.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return false
	}
	obj.Apply(patch)
	return true
}

// UpdateSync merges a partial, bumps version and timestamp, records history
// and emits the update broadcast plus the persistence write.
func (s *Store) UpdateSync(id string, patch model.Patch) bool {
	return s.updateSync(id, patch, true)
}

// ApplyConnectorUpdate is UpdateSync with history suppressed. Used for the
// cascading connector recomputes so moving a shape and its attached arrows
// undoes as a single user-level step.
func (s *Store) ApplyConnectorUpdate(id string, patch model.Patch) bool {
	return s.updateSync(id, patch, false)
}

func (s *Store) updateSync(id string, patch model.Patch, recordHistory bool) bool {
	now := model.NowMillis()

	s.mu.Lock()
	obj, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	before := obj.Clone()
	obj.Apply(patch)
	obj.Version++
	obj.UpdatedAt = now
	obj.UpdatedBy = s.userID
	if recordHistory {
		s.history.record("update", id, before, obj.Clone())
	}
	snapshot := obj.Clone()
	s.mu.Unlock()

	s.emit(model.LiveMessage{Type: model.MsgObjectUpdate, Object: snapshot})
	if s.persist != nil {
		persisted := patch
		persisted.UpdatedBy = model.Str(snapshot.UpdatedBy)
		persisted.UpdatedAt = model.I64(snapshot.UpdatedAt)
		persisted.Version = model.I64(snapshot.Version)
		s.persist.EnqueueUpdate(id, persisted)
	}
	return true
}

// BatchUpdate applies many partials in one state transition so readers never
// observe a torn intermediate frame. No version bump, no history; used for
// remote group-drag and group-resize applies.
func (s *Store) BatchUpdate(updates []model.MoveUpdate) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, u := range updates {
		if obj, ok := s.objects[u.ID]; ok {
			obj.Apply(u.Updates)
			applied++
		}
	}
	return applied
}

// Replace swaps in a full remote object after the LWW comparator accepted
// it. Inserts when absent (bootstrap).
func (s *Store) Replace(obj *model.CanvasObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID] = obj.Clone()
}

// Delete removes an object from the map and the selection. Used for remote
// deletes; missing ids are a no-op.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return false
	}
	delete(s.objects, id)
	delete(s.selected, id)
	return true
}

// DeleteSync removes an object, records a tombstone history entry and emits
// the delete broadcast plus the persistence delete.
func (s *Store) DeleteSync(id string) bool {
	s.mu.Lock()
	obj, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	before := obj.Clone()
	delete(s.objects, id)
	delete(s.selected, id)
	s.history.record("delete", id, before, nil)
	s.mu.Unlock()

	s.emit(model.LiveMessage{Type: model.MsgObjectDelete, ID: id})
	if s.persist != nil {
		s.persist.EnqueueDelete(id)
	}
	return true
}

// DeleteSelectedSync deletes the whole selection as one grouped history
// entry and a single batched persistence delete.
func (s *Store) DeleteSelectedSync() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.selected))
	entry := newEntry("delete selection")
	for id := range s.selected {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		entry.Before[id] = obj.Clone()
		entry.After[id] = nil
		delete(s.objects, id)
		ids = append(ids, id)
	}
	s.selected = make(map[string]bool)
	if len(ids) > 0 {
		s.history.push(entry)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.emit(model.LiveMessage{Type: model.MsgObjectDelete, ID: id})
	}
	if len(ids) > 0 && s.persist != nil {
		s.persist.EnqueueDeleteMany(ids)
	}
	return ids
}

// Select updates the selection. multi=false replaces the selection with
// {id}; multi=true toggles membership.
func (s *Store) Select(id string, multi bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return
	}
	if !multi {
		s.selected = map[string]bool{id: true}
		return
	}
	if s.selected[id] {
		delete(s.selected, id)
	} else {
		s.selected[id] = true
	}
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]bool)
}

// SelectedIDs returns the selected object ids.
func (s *Store) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	return ids
}

// SetActiveTool records the active tool.
func (s *Store) SetActiveTool(tool string) {
	s.mu.Lock()
	s.activeTool = tool
	s.mu.Unlock()
}

// ActiveTool returns the active tool.
func (s *Store) ActiveTool() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTool
}

// CopySelected snapshots the selection into the clipboard as detached
// copies. Returns the number of copied objects.
func (s *Store) CopySelected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipboard = s.clipboard[:0]
	for id := range s.selected {
		if obj, ok := s.objects[id]; ok {
			s.clipboard = append(s.clipboard, obj.Clone())
		}
	}
	return len(s.clipboard)
}

// PasteClipboard duplicates each clipboard object with a new id and a fixed
// positional offset. Connector bindings that point at a co-pasted object are
// remapped to the new id; bindings at anything else are cleared. The whole
// paste is one grouped history entry and becomes the new selection. Returns
// the new ids.
func (s *Store) PasteClipboard() []string {
	s.mu.RLock()
	if len(s.clipboard) == 0 {
		s.mu.RUnlock()
		return nil
	}
	copies := make([]*model.CanvasObject, 0, len(s.clipboard))
	idMap := make(map[string]string, len(s.clipboard))
	for _, src := range s.clipboard {
		c := src.Clone()
		newID := uuid.NewString()
		idMap[c.ID] = newID
		c.ID = newID
		c.X += pasteOffset
		c.Y += pasteOffset
		c.Version = 0
		copies = append(copies, c)
	}
	s.mu.RUnlock()

	for _, c := range copies {
		if c.Kind.IsConnector() {
			remapBinding(&c.Props.StartObjectID, &c.Props.StartAnchorSide, idMap)
			remapBinding(&c.Props.EndObjectID, &c.Props.EndAnchorSide, idMap)
		}
	}

	s.BeginBatch("paste")
	newIDs := make([]string, 0, len(copies))
	for _, c := range copies {
		if s.AddSync(c) {
			newIDs = append(newIDs, c.ID)
		}
	}
	s.CommitBatch()

	s.mu.Lock()
	s.selected = make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		s.selected[id] = true
	}
	s.mu.Unlock()

	return newIDs
}

// remapBinding rewrites a binding to the co-pasted copy, or clears it (and
// the remembered side) when the referenced object was not part of the paste.
func remapBinding(ref, side **string, idMap map[string]string) {
	if *ref == nil {
		return
	}
	if newID, ok := idMap[**ref]; ok {
		*ref = model.Str(newID)
		return
	}
	*ref = nil
	*side = nil
}
