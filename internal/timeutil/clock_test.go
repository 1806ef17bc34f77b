package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	assert.False(t, start.IsZero())
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	c := NewMockClock(epoch)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, epoch.Add(90*time.Second), c.Now())
	assert.Equal(t, 90*time.Second, c.Since(epoch))

	c.Set(epoch)
	assert.Zero(t, c.Since(epoch))
}

func TestMockClock_Tick(t *testing.T) {
	c := NewMockClock(epoch)
	c.SetTick(time.Second)

	start := c.Now()
	assert.Equal(t, epoch, start)
	assert.Equal(t, time.Second, c.Since(start))
	assert.Equal(t, epoch.Add(2*time.Second), c.Now())
}
