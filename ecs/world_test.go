package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	t.Run("speed scales time", func(t *testing.T) {
		w := newTestWorld()
		w.Clock().SetSpeed(2)
		w.Update(10 * time.Millisecond)
		assert.Equal(t, 20*time.Millisecond, w.Clock().TimeDiff())
		assert.Equal(t, 20*time.Millisecond, w.Clock().AccumulatedTime())
	})

	t.Run("fixed step ignores the frame time", func(t *testing.T) {
		w := newTestWorld()
		w.SetTimeStep(5 * time.Millisecond)
		w.Update(100 * time.Millisecond)
		w.Update(time.Millisecond)
		assert.Equal(t, 10*time.Millisecond, w.Clock().AccumulatedTime())
		assert.Equal(t, 5*time.Millisecond, w.Clock().FixedStep())
	})

	t.Run("paused worlds keep their time", func(t *testing.T) {
		w := newTestWorld()
		w.Update(frame)
		w.SetSimulationEnabled(false)
		w.Update(frame)
		assert.False(t, w.IsSimulating())
		assert.Equal(t, frame, w.Clock().AccumulatedTime())
		assert.Zero(t, w.Clock().TimeDiff())
		assert.Equal(t, uint64(2), w.FrameCount())
	})
}

func TestWorldRun(t *testing.T) {
	w := newTestWorld()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w.Run(ctx, time.Millisecond)
	assert.Greater(t, w.FrameCount(), uint64(0))

	t.Run("non-positive intervals fall back to a default", func(t *testing.T) {
		for _, interval := range []time.Duration{0, -time.Second} {
			w := newTestWorld()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			assert.NotPanics(t, func() { w.Run(ctx, interval) })
			cancel()
			assert.Greater(t, w.FrameCount(), uint64(0))
		}
	})
}
