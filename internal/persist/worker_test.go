package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/model"
)

type fakeRepo struct {
	inserts   []*model.CanvasObject
	updates   []string
	deletes   []string
	insertErr error
	updateObj *model.CanvasObject
	updateErr error
}

func (f *fakeRepo) Insert(_ context.Context, obj *model.CanvasObject) error {
	f.inserts = append(f.inserts, obj)
	return f.insertErr
}

func (f *fakeRepo) Update(_ context.Context, id string, _ model.Patch) (*model.CanvasObject, error) {
	f.updates = append(f.updates, id)
	return f.updateObj, f.updateErr
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRepo) DeleteMany(_ context.Context, ids []string) error {
	f.deletes = append(f.deletes, ids...)
	return nil
}

type fakeNotifier struct {
	published []model.ChangeNotification
}

func (f *fakeNotifier) Publish(_ context.Context, n model.ChangeNotification) error {
	f.published = append(f.published, n)
	return nil
}

func testObject(id string) *model.CanvasObject {
	return &model.CanvasObject{ID: id, BoardID: "board-1", Kind: model.KindNote, Version: 1}
}

func TestWorkerInsertNotifiesAfterCommit(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	w := NewWorker("board-1", "user-1", repo, notifier, 0)

	w.execute(context.Background(), Command{Op: OpInsert, Object: testObject("n1")})

	require.Len(t, repo.inserts, 1)
	require.Len(t, notifier.published, 1)
	n := notifier.published[0]
	assert.Equal(t, model.EventInsert, n.EventType)
	assert.Equal(t, "board-1", n.BoardID)
	assert.Equal(t, "n1", n.ObjectID)
	assert.Equal(t, "user-1", n.SenderID)
	require.NotNil(t, n.Object)
}

func TestWorkerInsertFailureSkipsNotify(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	w := NewWorker("board-1", "user-1", repo, notifier, 0)

	w.execute(context.Background(), Command{Op: OpInsert, Object: testObject("n1")})
	assert.Empty(t, notifier.published)
}

func TestWorkerUpdateOnMissingRowSkipsNotify(t *testing.T) {
	// Repository reports a concurrently deleted row as (nil, nil).
	repo := &fakeRepo{updateObj: nil}
	notifier := &fakeNotifier{}
	w := NewWorker("board-1", "user-1", repo, notifier, 0)

	w.execute(context.Background(), Command{Op: OpUpdate, ID: "gone", Patch: model.Patch{X: model.F64(1)}})

	require.Len(t, repo.updates, 1)
	assert.Empty(t, notifier.published)
}

func TestWorkerUpdateNotifiesWithFreshRow(t *testing.T) {
	repo := &fakeRepo{updateObj: testObject("n1")}
	notifier := &fakeNotifier{}
	w := NewWorker("board-1", "user-1", repo, notifier, 0)

	w.execute(context.Background(), Command{Op: OpUpdate, ID: "n1", Patch: model.Patch{X: model.F64(1)}})

	require.Len(t, notifier.published, 1)
	assert.Equal(t, model.EventUpdate, notifier.published[0].EventType)
	assert.Equal(t, "n1", notifier.published[0].Object.ID)
}

func TestWorkerDeleteManyNotifiesPerID(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	w := NewWorker("board-1", "user-1", repo, notifier, 0)

	w.execute(context.Background(), Command{Op: OpDeleteMany, IDs: []string{"a", "b"}})

	assert.ElementsMatch(t, []string{"a", "b"}, repo.deletes)
	require.Len(t, notifier.published, 2)
	for _, n := range notifier.published {
		assert.Equal(t, model.EventDelete, n.EventType)
		assert.Nil(t, n.Object)
	}
}

func TestWorkerNilNotifier(t *testing.T) {
	repo := &fakeRepo{}
	w := NewWorker("board-1", "user-1", repo, nil, 0)
	// Must not panic without a change feed wired.
	w.execute(context.Background(), Command{Op: OpDelete, ID: "n1"})
	assert.Equal(t, []string{"n1"}, repo.deletes)
}

func TestWorkerQueueDropsWhenFull(t *testing.T) {
	repo := &fakeRepo{}
	w := NewWorker("board-1", "user-1", repo, nil, 1)

	w.EnqueueDelete("a")
	w.EnqueueDelete("b") // dropped, queue is full

	assert.Len(t, w.queue, 1)
	got := <-w.queue
	assert.Equal(t, "a", got.ID)
}
