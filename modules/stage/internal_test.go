package stage

import (
	"image/color"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/e7canasta/orion-playout/modules/frame"
	"github.com/e7canasta/orion-playout/modules/producer"
)

func TestTicketRunsCallbackOnLastRelease(t *testing.T) {
	calls := 0
	ticket := NewTicket(func() { calls++ })

	ticket.Retain().Retain()
	assert.Equal(t, int64(3), ticket.Refs())

	ticket.Release()
	ticket.Release()
	assert.Zero(t, calls)

	ticket.Release()
	assert.Equal(t, 1, calls)

	ticket.Release()
	assert.Equal(t, 1, calls, "extra releases are ignored")
}

func TestHintsFor(t *testing.T) {
	tr := frame.DefaultTransform()
	assert.Equal(t, producer.HintNone, hintsFor(tr, frame.UpperFieldFirst))

	tr.FillTranslation[1] = 0.1
	assert.Equal(t, producer.HintDeinterlace, hintsFor(tr, frame.UpperFieldFirst))
	assert.Equal(t, producer.HintNone, hintsFor(tr, frame.Progressive), "progressive channels never deinterlace")

	tr = frame.DefaultTransform()
	tr.IsKey = true
	assert.Equal(t, producer.HintAlpha, hintsFor(tr, frame.Progressive))
}

func TestLockOrder(t *testing.T) {
	a := &Stage{channelIndex: 1, seq: 10}
	b := &Stage{channelIndex: 2, seq: 5}
	c := &Stage{channelIndex: 2, seq: 6}

	assert.True(t, before(a, b))
	assert.False(t, before(b, a))
	assert.True(t, before(b, c))
	assert.False(t, before(c, b))
}

func TestLayerStates(t *testing.T) {
	format := frame.Format{Name: "tiny", Width: 1, Height: 1, Rate: frame.Rate{Num: 25, Den: 1}}
	l := newLayer(0, nil, slog.Default())
	assert.Equal(t, StateEmpty, l.state())

	l.load(producer.NewColor(format, color.RGBA{A: 255}), false, -1)
	assert.Equal(t, StateLoaded, l.state())

	l.play()
	assert.Equal(t, StatePlaying, l.state())

	l.pause()
	assert.Equal(t, StatePaused, l.state())

	l.resume()
	l.stop()
	assert.Equal(t, StateStopped, l.state())
	assert.True(t, l.receive(producer.HintNone).IsEmpty())
}
