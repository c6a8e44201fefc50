package upload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()

	id := tr.Begin("a.pdf", 100)
	tr.SetTransport(id, TransportDirect)
	tr.Progress(id, 40)
	tr.Progress(id, 20)
	assert.Equal(t, 40, tr.Snapshot()[0].Percent, "never decreases")
	assert.Equal(t, 1, tr.Active())

	tr.SetTransport(id, TransportFallback)
	assert.Equal(t, 0, tr.Snapshot()[0].Percent, "new transport starts over")

	tr.Finish(id, nil)
	e := tr.Snapshot()[0]
	assert.Equal(t, StatusDone, e.Status)
	assert.Equal(t, 100, e.Percent)
	assert.Equal(t, 0, tr.Active())

	other := tr.Begin("b.pdf", 1)
	tr.Finish(other, errors.New("boom"))
	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b.pdf", snap[1].Filename)
	assert.Equal(t, StatusFailed, snap[1].Status)
	assert.Equal(t, "boom", snap[1].Err)
}

func TestTracker_PrunesFinished(t *testing.T) {
	tr := NewTracker()
	running := tr.Begin("running.zip", 1)

	for i := 0; i < maxFinished+5; i++ {
		tr.Finish(tr.Begin("f.pdf", 1), nil)
	}
	tr.Begin("last.pdf", 1)

	snap := tr.Snapshot()
	assert.Len(t, snap, maxFinished+2)
	assert.Equal(t, running, snap[0].TrackingID, "running uploads are kept")
}

func TestTracker_Nil(t *testing.T) {
	var tr *Tracker
	id := tr.Begin("a", 1)
	assert.NotEmpty(t, id)
	tr.Progress(id, 10)
	tr.Finish(id, nil)
	assert.Nil(t, tr.Snapshot())
}
