package model

// Live channel message types.
const (
	MsgObjectCreate    = "object_create"
	MsgObjectUpdate    = "object_update"
	MsgObjectDelete    = "object_delete"
	MsgObjectMove      = "object_move"
	MsgObjectMoveBatch = "object_move_batch"
	MsgCursor          = "cursor"
	MsgPresence        = "presence"
)

// MoveUpdate 배치 이동 항목 (id + partial)
type MoveUpdate struct {
	ID      string `json:"id"`
	Updates Patch  `json:"updates"`
}

// CursorState ephemeral cursor broadcast payload.
type CursorState struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// PresencePayload presence join/leave broadcast payload.
type PresencePayload struct {
	UserID string `json:"userId"`
	Event  string `json:"event"` // join, leave
}

// LiveMessage is the envelope carried on the per-board live channel. Every
// message carries the sender id; receivers discard their own echoes.
type LiveMessage struct {
	Type     string           `json:"type"`
	SenderID string           `json:"senderId"`
	Object   *CanvasObject    `json:"object,omitempty"`
	ID       string           `json:"id,omitempty"`
	Updates  *Patch           `json:"updates,omitempty"`
	Batch    []MoveUpdate     `json:"batch,omitempty"`
	Cursor   *CursorState     `json:"cursor,omitempty"`
	Presence *PresencePayload `json:"presence,omitempty"`
}

// Change-notification event types (backing store change feed).
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// ChangeNotification durable change feed entry for one board object. Delete
// notifications may carry only the id.
type ChangeNotification struct {
	EventType string        `json:"eventType"`
	BoardID   string        `json:"boardId"`
	ObjectID  string        `json:"objectId"`
	Object    *CanvasObject `json:"object,omitempty"`
	SenderID  string        `json:"senderId"`
}
