package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/model"
)

// shapeOf strips the volatile sync metadata so round-trip comparisons only
// look at user-visible state.
func shapeOf(o *model.CanvasObject) model.CanvasObject {
	c := *o.Clone()
	c.Version = 0
	c.UpdatedAt = 0
	c.UpdatedBy = ""
	return c
}

func TestUndoRedoCreate(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("n1", 10, 10))

	require.True(t, st.Undo())
	assert.Equal(t, 0, st.Len())
	assert.False(t, st.CanUndo())
	assert.True(t, st.CanRedo())

	require.True(t, st.Redo())
	obj, ok := st.Get("n1")
	require.True(t, ok)
	assert.Equal(t, 10.0, obj.X)
	// Restores are fresh mutations, not replays of the old version.
	assert.Equal(t, int64(2), obj.Version)
}

func TestUndoRedoUpdate(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("n1", 10, 10))
	st.UpdateSync("n1", model.Patch{X: model.F64(99), Props: &model.Props{Color: model.Str("#f00")}})

	after, _ := st.Get("n1")

	require.True(t, st.Undo())
	obj, _ := st.Get("n1")
	assert.Equal(t, 10.0, obj.X)
	assert.Nil(t, obj.Props.Color)
	assert.Greater(t, obj.Version, after.Version)

	require.True(t, st.Redo())
	obj, _ = st.Get("n1")
	assert.Equal(t, shapeOf(after), shapeOf(obj))
}

func TestUndoDeleteRestoresSnapshot(t *testing.T) {
	st, b, sink := newTestStore()
	n := note("n1", 10, 10)
	n.Props.Color = model.Str("#ffeb3b")
	st.AddSync(n)
	st.DeleteSync("n1")
	b.messages = nil

	require.True(t, st.Undo())
	obj, ok := st.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "#ffeb3b", *obj.Props.Color)

	// The restore broadcasts a create and re-inserts the row.
	require.Len(t, b.messages, 1)
	assert.Equal(t, model.MsgObjectCreate, b.messages[0].Type)
	assert.Len(t, sink.inserts, 2)

	// Redo deletes it again.
	require.True(t, st.Redo())
	_, ok = st.Get("n1")
	assert.False(t, ok)
}

func TestBatchUndoesAsOneStep(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("a", 0, 0))
	st.AddSync(note("b", 0, 0))

	st.BeginBatch("group move")
	st.UpdateSync("a", model.Patch{X: model.F64(10)})
	st.UpdateSync("a", model.Patch{X: model.F64(20)})
	st.UpdateSync("b", model.Patch{Y: model.F64(30)})
	st.CommitBatch()

	undo, _ := st.HistoryDepths()
	assert.Equal(t, 3, undo) // 2 creates + 1 batch

	require.True(t, st.Undo())
	a, _ := st.Get("a")
	bObj, _ := st.Get("b")
	// First-before snapshot wins: both intermediate moves revert together.
	assert.Equal(t, 0.0, a.X)
	assert.Equal(t, 0.0, bObj.Y)

	require.True(t, st.Redo())
	a, _ = st.Get("a")
	bObj, _ = st.Get("b")
	// Latest-after snapshot wins.
	assert.Equal(t, 20.0, a.X)
	assert.Equal(t, 30.0, bObj.Y)
}

func TestEmptyBatchIsNoop(t *testing.T) {
	st, _, _ := newTestStore()
	st.BeginBatch("nothing")
	st.CommitBatch()
	assert.False(t, st.CanUndo())
}

func TestConnectorUpdatesSkipHistory(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("a", 0, 0))

	before, _ := st.HistoryDepths()
	require.True(t, st.ApplyConnectorUpdate("a", model.Patch{X: model.F64(5)}))
	after, _ := st.HistoryDepths()
	assert.Equal(t, before, after)
}

func TestNewMutationClearsRedo(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("n1", 0, 0))
	st.UpdateSync("n1", model.Patch{X: model.F64(1)})

	require.True(t, st.Undo())
	require.True(t, st.CanRedo())

	st.UpdateSync("n1", model.Patch{X: model.F64(2)})
	assert.False(t, st.CanRedo())
}

func TestUndoDepthIsBounded(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("n1", 0, 0))

	for i := 0; i < defaultHistoryDepth+20; i++ {
		st.UpdateSync("n1", model.Patch{X: model.F64(float64(i))})
	}

	undo, _ := st.HistoryDepths()
	assert.Equal(t, defaultHistoryDepth, undo)

	for st.CanUndo() {
		st.Undo()
	}
	// The create fell off the bottom; the oldest surviving X is still there.
	obj, ok := st.Get("n1")
	require.True(t, ok)
	assert.Equal(t, float64(19), obj.X)
}

func TestUndoStackOrdering(t *testing.T) {
	st, _, _ := newTestStore()
	st.AddSync(note("n1", 0, 0))
	for i := 1; i <= 3; i++ {
		st.UpdateSync("n1", model.Patch{X: model.F64(float64(i))})
	}

	for want := 2; want >= 0; want-- {
		require.True(t, st.Undo(), fmt.Sprintf("undo to x=%d", want))
		obj, _ := st.Get("n1")
		assert.Equal(t, float64(want), obj.X)
	}
}
