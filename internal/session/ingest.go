package session

import (
	"context"
	"log"

	"realtime-canvas/internal/conflict"
	"realtime-canvas/internal/geometry"
	"realtime-canvas/internal/model"
)

// handleLive is the single entry point for inbound live-channel messages.
// The self-echo guard lives here, not in the per-type handlers: the sender
// already applied its own mutation optimistically.
func (s *Session) handleLive(msg model.LiveMessage) {
	if msg.SenderID == s.userID {
		return
	}

	switch msg.Type {
	case model.MsgObjectCreate, model.MsgObjectUpdate:
		if msg.Object == nil {
			return
		}
		s.applyRemoteObject(msg.Object)

	case model.MsgObjectDelete:
		s.store.Delete(msg.ID)

	case model.MsgObjectMove:
		if msg.Updates == nil {
			return
		}
		// Ephemeral frame, no version to compare; missing ids are a no-op.
		if s.store.Update(msg.ID, *msg.Updates) {
			s.propagateConnectors([]string{msg.ID})
		}

	case model.MsgObjectMoveBatch:
		if len(msg.Batch) == 0 {
			return
		}
		s.store.BatchUpdate(msg.Batch)
		ids := make([]string, 0, len(msg.Batch))
		for _, u := range msg.Batch {
			ids = append(ids, u.ID)
		}
		s.propagateConnectors(ids)

	case model.MsgCursor:
		if msg.Cursor == nil {
			return
		}
		s.mu.Lock()
		s.cursors[msg.Cursor.UserID] = *msg.Cursor
		s.mu.Unlock()

	case model.MsgPresence:
		if msg.Presence == nil {
			return
		}
		s.mu.Lock()
		if msg.Presence.Event == "leave" {
			delete(s.online, msg.Presence.UserID)
			delete(s.cursors, msg.Presence.UserID)
		} else {
			s.online[msg.Presence.UserID] = true
		}
		s.mu.Unlock()
	}
}

// handleNotification applies one durable change-feed entry. Stale and
// duplicate notifications are silently resolved by the LWW comparator.
func (s *Session) handleNotification(n model.ChangeNotification) {
	if n.SenderID == s.userID {
		return
	}

	switch n.EventType {
	case model.EventInsert, model.EventUpdate:
		if n.Object == nil {
			return
		}
		s.applyRemoteObject(n.Object)
	case model.EventDelete:
		// The deleted row's prior content may be omitted; only the id counts.
		s.store.Delete(n.ObjectID)
	}
}

// applyRemoteObject runs the LWW comparator against the local copy and, on
// acceptance, fully supersedes it with the remote object. A missing local
// object bootstraps unconditionally.
func (s *Session) applyRemoteObject(obj *model.CanvasObject) {
	local, exists := s.store.Get(obj.ID)
	if exists {
		if !conflict.ShouldApplyRemote(local.Version, obj.Version, local.UpdatedAt, obj.UpdatedAt) {
			return
		}
		s.store.Replace(obj)
	} else {
		s.store.Add(obj)
	}
	s.propagateConnectors([]string{obj.ID})
}

// propagateConnectors recomputes every arrow connected to the given shapes
// against the fully updated snapshot and pushes the results through the
// normal mutation path with history suppressed. Arrows connected to several
// moved shapes are recomputed once.
func (s *Session) propagateConnectors(shapeIDs []string) {
	snap := s.store.Snapshot()

	seen := make(map[string]bool)
	var arrows []*model.CanvasObject
	for _, id := range shapeIDs {
		shape, ok := snap[id]
		if !ok || shape.Kind.IsConnector() {
			continue
		}
		for _, a := range geometry.ConnectedArrows(snap, id) {
			if !seen[a.ID] {
				seen[a.ID] = true
				arrows = append(arrows, a)
			}
		}
	}

	for _, a := range arrows {
		placement, ok := geometry.RecomputeArrow(a, snap)
		if !ok {
			continue
		}
		s.store.ApplyConnectorUpdate(a.ID, placement.Patch())
	}
}

// Resync refetches the whole board from the backing store and merges it in,
// object by object, through the LWW comparator. Local objects absent from
// the fetched set are dropped; their deletes were missed while degraded.
func (s *Session) Resync(ctx context.Context) {
	if s.loader == nil {
		return
	}
	objects, err := s.loader.SelectAll(ctx, s.boardID)
	if err != nil {
		log.Printf("[Session] Resync for board %s failed: %v", s.boardID, err)
		return
	}

	fetched := make(map[string]bool, len(objects))
	for _, obj := range objects {
		fetched[obj.ID] = true
		local, exists := s.store.Get(obj.ID)
		if !exists || conflict.ShouldApplyRemote(local.Version, obj.Version, local.UpdatedAt, obj.UpdatedAt) {
			s.store.Replace(obj)
		}
	}

	removed := 0
	for id := range s.store.Snapshot() {
		if !fetched[id] {
			s.store.Delete(id)
			removed++
		}
	}

	log.Printf("[Session] Resynced board %s: %d objects, %d removed", s.boardID, len(objects), removed)
}
