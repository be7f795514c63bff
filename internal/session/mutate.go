package session

import (
	"github.com/google/uuid"

	"realtime-canvas/internal/model"
)

// The mutation surface called by the rendering/interaction collaborator.
// Every method updates the local store synchronously (optimistic) and emits
// the matching broadcast and persistence write through the store.

// CreateObject inserts a new object and returns its id.
func (s *Session) CreateObject(obj *model.CanvasObject) string {
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	s.store.AddSync(obj)
	return obj.ID
}

// UpdateObject applies a durable partial update, e.g. the final mutation at
// drag-end. Always unthrottled so the end state is never lost even when
// intermediate frames were dropped.
func (s *Session) UpdateObject(id string, patch model.Patch) bool {
	if !s.store.UpdateSync(id, patch) {
		return false
	}
	s.propagateConnectors([]string{id})
	return true
}

// LiveMove broadcasts an ephemeral move/resize frame during a drag. Applied
// locally, throttled on the wire, never persisted.
func (s *Session) LiveMove(id string, patch model.Patch) {
	if !s.store.Update(id, patch) {
		return
	}
	s.Broadcast(model.LiveMessage{
		Type:     model.MsgObjectMove,
		SenderID: s.userID,
		ID:       id,
		Updates:  &patch,
	})
	s.propagateConnectors([]string{id})
}

// LiveMoveBatch is LiveMove for a multi-object drag: one atomic local apply,
// one broadcast frame.
func (s *Session) LiveMoveBatch(updates []model.MoveUpdate) {
	if s.store.BatchUpdate(updates) == 0 {
		return
	}
	s.Broadcast(model.LiveMessage{
		Type:     model.MsgObjectMoveBatch,
		SenderID: s.userID,
		Batch:    updates,
	})
	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}
	s.propagateConnectors(ids)
}

// MoveConnectorBody drags a connector directly. Dragging the body has no
// meaningful "which endpoint moved" semantics, so both bindings are cleared
// and the connector becomes free-floating.
func (s *Session) MoveConnectorBody(id string, patch model.Patch) bool {
	if patch.Props == nil {
		patch.Props = &model.Props{}
	}
	patch.Props.StartObjectID = model.Str("")
	patch.Props.EndObjectID = model.Str("")
	patch.Props.StartAnchorSide = model.Str("")
	patch.Props.EndAnchorSide = model.Str("")
	return s.store.UpdateSync(id, patch)
}

// DeleteObject removes one object durably.
func (s *Session) DeleteObject(id string) bool {
	return s.store.DeleteSync(id)
}

// DeleteSelection removes the whole selection as one undoable step.
func (s *Session) DeleteSelection() []string {
	return s.store.DeleteSelectedSync()
}

// Undo reverts the most recent user-level step.
func (s *Session) Undo() bool { return s.store.Undo() }

// Redo reapplies the most recently undone step.
func (s *Session) Redo() bool { return s.store.Redo() }

// SendCursor broadcasts the local cursor position (throttled).
func (s *Session) SendCursor(x, y float64) {
	s.Broadcast(model.LiveMessage{
		Type:     model.MsgCursor,
		SenderID: s.userID,
		Cursor:   &model.CursorState{UserID: s.userID, X: x, Y: y},
	})
}
