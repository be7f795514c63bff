package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/model"
)

type recordingBroadcaster struct {
	messages []model.LiveMessage
}

func (r *recordingBroadcaster) Broadcast(msg model.LiveMessage) {
	r.messages = append(r.messages, msg)
}

type recordingSink struct {
	inserts     []*model.CanvasObject
	updates     []string
	deletes     []string
	deleteManys [][]string
}

func (r *recordingSink) EnqueueInsert(obj *model.CanvasObject)        { r.inserts = append(r.inserts, obj) }
func (r *recordingSink) EnqueueUpdate(id string, patch model.Patch)   { r.updates = append(r.updates, id) }
func (r *recordingSink) EnqueueDelete(id string)                      { r.deletes = append(r.deletes, id) }
func (r *recordingSink) EnqueueDeleteMany(ids []string)               { r.deleteManys = append(r.deleteManys, ids) }

func newTestStore() (*Store, *recordingBroadcaster, *recordingSink) {
	st := NewStore("board-1", "user-1")
	b := &recordingBroadcaster{}
	sink := &recordingSink{}
	st.SetBroadcaster(b)
	st.SetPersistSink(sink)
	return st, b, sink
}

func note(id string, x, y float64) *model.CanvasObject {
	return &model.CanvasObject{
		ID:     id,
		Kind:   model.KindNote,
		X:      x,
		Y:      y,
		Width:  100,
		Height: 100,
	}
}

func TestAddSyncSetsMetadata(t *testing.T) {
	st, b, sink := newTestStore()

	ok := st.AddSync(note("n1", 10, 20))
	require.True(t, ok)

	obj, found := st.Get("n1")
	require.True(t, found)
	assert.Equal(t, "board-1", obj.BoardID)
	assert.Equal(t, "user-1", obj.UpdatedBy)
	assert.Equal(t, int64(1), obj.Version)
	assert.NotZero(t, obj.UpdatedAt)

	require.Len(t, b.messages, 1)
	assert.Equal(t, model.MsgObjectCreate, b.messages[0].Type)
	assert.Equal(t, "user-1", b.messages[0].SenderID)
	require.Len(t, sink.inserts, 1)

	// Duplicate id is dropped without a second broadcast.
	assert.False(t, st.AddSync(note("n1", 0, 0)))
	assert.Len(t, b.messages, 1)
}

func TestUpdateMissingIDIsNoop(t *testing.T) {
	st, b, sink := newTestStore()

	assert.False(t, st.Update("ghost", model.Patch{X: model.F64(1)}))
	assert.False(t, st.UpdateSync("ghost", model.Patch{X: model.F64(1)}))
	assert.Empty(t, b.messages)
	assert.Empty(t, sink.updates)
}

func TestUpdateSyncBumpsVersion(t *testing.T) {
	st, b, sink := newTestStore()
	st.AddSync(note("n1", 0, 0))

	require.True(t, st.UpdateSync("n1", model.Patch{X: model.F64(50)}))

	obj, _ := st.Get("n1")
	assert.Equal(t, 50.0, obj.X)
	assert.Equal(t, int64(2), obj.Version)

	require.Len(t, b.messages, 2)
	assert.Equal(t, model.MsgObjectUpdate, b.messages[1].Type)
	// Update broadcasts carry the full patched object.
	assert.Equal(t, int64(2), b.messages[1].Object.Version)
	assert.Equal(t, []string{"n1"}, sink.updates)
}

func TestBroadcasterQueueAndFlush(t *testing.T) {
	st := NewStore("board-1", "user-1")
	st.AddSync(note("n1", 0, 0))
	st.UpdateSync("n1", model.Patch{X: model.F64(5)})

	// Nothing was dropped while the channel was absent.
	b := &recordingBroadcaster{}
	st.SetBroadcaster(b)
	require.Len(t, b.messages, 2)
	assert.Equal(t, model.MsgObjectCreate, b.messages[0].Type)
	assert.Equal(t, model.MsgObjectUpdate, b.messages[1].Type)
	assert.Equal(t, "user-1", b.messages[0].SenderID)
}

func TestBatchUpdateAppliesAll(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("a", 0, 0))
	st.AddSync(note("b", 10, 10))

	applied := st.BatchUpdate([]model.MoveUpdate{
		{ID: "a", Updates: model.Patch{X: model.F64(100)}},
		{ID: "b", Updates: model.Patch{X: model.F64(200)}},
		{ID: "ghost", Updates: model.Patch{X: model.F64(1)}},
	})
	assert.Equal(t, 2, applied)

	a, _ := st.Get("a")
	bObj, _ := st.Get("b")
	assert.Equal(t, 100.0, a.X)
	assert.Equal(t, 200.0, bObj.X)
	// Remote batch applies never bump the version.
	assert.Equal(t, int64(1), a.Version)
}

func TestSelection(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("a", 0, 0))
	st.AddSync(note("b", 0, 0))

	st.Select("a", false)
	assert.ElementsMatch(t, []string{"a"}, st.SelectedIDs())

	// Multi-select toggles membership.
	st.Select("b", true)
	assert.ElementsMatch(t, []string{"a", "b"}, st.SelectedIDs())
	st.Select("a", true)
	assert.ElementsMatch(t, []string{"b"}, st.SelectedIDs())

	// Single select replaces.
	st.Select("a", false)
	assert.ElementsMatch(t, []string{"a"}, st.SelectedIDs())

	// Unknown ids are ignored.
	st.Select("ghost", false)
	assert.ElementsMatch(t, []string{"a"}, st.SelectedIDs())

	st.ClearSelection()
	assert.Empty(t, st.SelectedIDs())
}

func TestCopyPasteRemapsBindings(t *testing.T) {
	st, _, _ := newTestStore()

	shape := note("shape", 0, 0)
	shape.Kind = model.KindRectangle
	st.AddSync(shape)

	outside := note("outside", 500, 500)
	outside.Kind = model.KindRectangle
	st.AddSync(outside)

	bound := &model.CanvasObject{
		ID:   "bound",
		Kind: model.KindArrow,
		X:    100, Y: 50,
		Props: model.Props{
			Points:          []float64{0, 0, 50, 0},
			StartObjectID:   model.Str("shape"),
			StartAnchorSide: model.Str("right"),
			EndObjectID:     model.Str("outside"),
			EndAnchorSide:   model.Str("left"),
		},
	}
	st.AddSync(bound)

	st.ClearSelection()
	st.Select("shape", false)
	st.Select("bound", true)
	require.Equal(t, 2, st.CopySelected())

	newIDs := st.PasteClipboard()
	require.Len(t, newIDs, 2)

	// Pasted copies are the new selection.
	assert.ElementsMatch(t, newIDs, st.SelectedIDs())

	var pastedShape, pastedArrow *model.CanvasObject
	for _, id := range newIDs {
		obj, ok := st.Get(id)
		require.True(t, ok)
		assert.NotEqual(t, "shape", obj.ID)
		assert.NotEqual(t, "bound", obj.ID)
		if obj.Kind == model.KindArrow {
			pastedArrow = obj
		} else {
			pastedShape = obj
		}
	}
	require.NotNil(t, pastedShape)
	require.NotNil(t, pastedArrow)

	// Fixed offset from the originals.
	assert.Equal(t, 20.0, pastedShape.X)
	assert.Equal(t, 20.0, pastedShape.Y)
	assert.Equal(t, 120.0, pastedArrow.X)
	assert.Equal(t, 70.0, pastedArrow.Y)

	// Binding at a co-pasted object is remapped to the copy's id; the side
	// survives. Binding at anything else is cleared together with its side.
	assert.Equal(t, pastedShape.ID, pastedArrow.Props.Binding(true))
	assert.Equal(t, "right", pastedArrow.Props.AnchorSide(true))
	assert.Equal(t, "", pastedArrow.Props.Binding(false))
	assert.Equal(t, "", pastedArrow.Props.AnchorSide(false))

	// Pasted copies start at version 1 like any fresh create.
	assert.Equal(t, int64(1), pastedArrow.Version)

	// The whole paste is one undoable step.
	undo, _ := st.HistoryDepths()
	assert.Equal(t, 4, undo) // 3 creates + 1 paste batch
	require.True(t, st.Undo())
	_, ok := st.Get(pastedShape.ID)
	assert.False(t, ok)
	_, ok = st.Get(pastedArrow.ID)
	assert.False(t, ok)
	assert.Equal(t, 3, st.Len())
}

func TestDeleteSelectedSync(t *testing.T) {
	st, b, sink := newTestStore()
	for _, id := range []string{"a", "b", "c"} {
		st.AddSync(note(id, 0, 0))
	}
	st.Select("a", false)
	st.Select("b", true)
	st.Select("c", true)
	b.messages = nil

	ids := st.DeleteSelectedSync()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.SelectedIDs())

	// One delete broadcast per object, one batched persistence delete.
	assert.Len(t, b.messages, 3)
	require.Len(t, sink.deleteManys, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, sink.deleteManys[0])

	// One undo brings all three back with fresh versions.
	require.True(t, st.Undo())
	assert.Equal(t, 3, st.Len())
	a, ok := st.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), a.Version)
	assert.Equal(t, "user-1", a.UpdatedBy)
}

func TestDeleteSyncMissingIDIsNoop(t *testing.T) {
	st, b, sink := newTestStore()
	assert.False(t, st.DeleteSync("ghost"))
	assert.Empty(t, b.messages)
	assert.Empty(t, sink.deletes)
}
