package persist

import (
	"context"
	"log"

	"realtime-canvas/internal/model"
)

// Op persistence command kind.
type Op string

const (
	OpInsert     Op = "insert"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpDeleteMany Op = "delete_many"
)

// Command is one fire-and-forget persistence write.
type Command struct {
	Op     Op
	Object *model.CanvasObject
	ID     string
	Patch  model.Patch
	IDs    []string
}

// Store is the subset of Repository the worker writes through.
type Store interface {
	Insert(ctx context.Context, obj *model.CanvasObject) error
	Update(ctx context.Context, id string, patch model.Patch) (*model.CanvasObject, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

// Notifier publishes change notifications after a committed write.
type Notifier interface {
	Publish(ctx context.Context, n model.ChangeNotification) error
}

// Worker drains a buffered command queue and writes through to the backing
// store. Failures are logged and never retried; the optimistic local state
// stays authoritative until a later remote notification says otherwise.
type Worker struct {
	boardID  string
	senderID string
	store    Store
	notifier Notifier
	queue    chan Command
}

// NewWorker creates a persistence worker for one board session. notifier may
// be nil when no change feed is wired (tests).
func NewWorker(boardID, senderID string, store Store, notifier Notifier, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		boardID:  boardID,
		senderID: senderID,
		store:    store,
		notifier: notifier,
		queue:    make(chan Command, queueSize),
	}
}

// Run consumes commands until ctx is done. Call in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.queue:
			w.execute(ctx, cmd)
		}
	}
}

// Enqueue hands off a command without blocking the store's synchronous
// contract. A full queue drops the command with a log line.
func (w *Worker) Enqueue(cmd Command) {
	select {
	case w.queue <- cmd:
	default:
		log.Printf("[Persist] Queue full, dropping %s for board %s", cmd.Op, w.boardID)
	}
}

// EnqueueInsert implements store.PersistSink.
func (w *Worker) EnqueueInsert(obj *model.CanvasObject) {
	w.Enqueue(Command{Op: OpInsert, Object: obj})
}

// EnqueueUpdate implements store.PersistSink.
func (w *Worker) EnqueueUpdate(id string, patch model.Patch) {
	w.Enqueue(Command{Op: OpUpdate, ID: id, Patch: patch})
}

// EnqueueDelete implements store.PersistSink.
func (w *Worker) EnqueueDelete(id string) {
	w.Enqueue(Command{Op: OpDelete, ID: id})
}

// EnqueueDeleteMany implements store.PersistSink.
func (w *Worker) EnqueueDeleteMany(ids []string) {
	w.Enqueue(Command{Op: OpDeleteMany, IDs: ids})
}

func (w *Worker) execute(ctx context.Context, cmd Command) {
	switch cmd.Op {
	case OpInsert:
		if err := w.store.Insert(ctx, cmd.Object); err != nil {
			log.Printf("[Persist] Insert %s failed: %v", cmd.Object.ID, err)
			return
		}
		w.notify(ctx, model.EventInsert, cmd.Object.ID, cmd.Object)

	case OpUpdate:
		obj, err := w.store.Update(ctx, cmd.ID, cmd.Patch)
		if err != nil {
			log.Printf("[Persist] Update %s failed: %v", cmd.ID, err)
			return
		}
		if obj == nil {
			// Row deleted by a concurrent writer, nothing to notify.
			return
		}
		w.notify(ctx, model.EventUpdate, cmd.ID, obj)

	case OpDelete:
		if err := w.store.Delete(ctx, cmd.ID); err != nil {
			log.Printf("[Persist] Delete %s failed: %v", cmd.ID, err)
			return
		}
		w.notify(ctx, model.EventDelete, cmd.ID, nil)

	case OpDeleteMany:
		if err := w.store.DeleteMany(ctx, cmd.IDs); err != nil {
			log.Printf("[Persist] DeleteMany (%d ids) failed: %v", len(cmd.IDs), err)
			return
		}
		for _, id := range cmd.IDs {
			w.notify(ctx, model.EventDelete, id, nil)
		}
	}
}

func (w *Worker) notify(ctx context.Context, eventType, objectID string, obj *model.CanvasObject) {
	if w.notifier == nil {
		return
	}
	n := model.ChangeNotification{
		EventType: eventType,
		BoardID:   w.boardID,
		ObjectID:  objectID,
		Object:    obj,
		SenderID:  w.senderID,
	}
	if err := w.notifier.Publish(ctx, n); err != nil {
		log.Printf("[Persist] Notify %s for %s failed: %v", eventType, objectID, err)
	}
}
