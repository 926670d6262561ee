package guidance

import (
	"PerfectFit/internal/entity"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

type recordingSink struct {
	shown   []string
	spoken  []string
	cleared int
}

func (s *recordingSink) Show(msg string)   { s.shown = append(s.shown, msg) }
func (s *recordingSink) Speak(text string) { s.spoken = append(s.spoken, text) }
func (s *recordingSink) Clear()            { s.cleared++ }

func newController() (*Controller, *recordingSink, *fakeClock) {
	sink := &recordingSink{}
	clock := newFakeClock()
	c := New(sink, clock, DefaultOptions())
	c.Start()
	return c, sink, clock
}

func failing(id entity.CheckID, msg string) entity.ValidationCheck {
	return entity.ValidationCheck{ID: id, Message: msg}
}

func passing(id entity.CheckID) entity.ValidationCheck {
	return entity.ValidationCheck{ID: id, Passed: true}
}

func TestGuide_PriorityDistanceBeatsTilt(t *testing.T) {
	c, sink, _ := newController()

	checks := []entity.ValidationCheck{
		failing(entity.CheckTilt, "Tilt head left"),
		passing(entity.CheckFaceDetected),
		failing(entity.CheckDistance, "Move closer"),
		passing(entity.CheckFaceInOval),
	}

	in, ok := c.Guide(checks)
	require.True(t, ok)
	assert.Equal(t, entity.CheckDistance, in.CheckID)
	assert.Equal(t, "Please move closer to the camera. Your face should fill most of the oval.", in.Spoken)
	assert.Equal(t, []string{"Move closer"}, sink.shown)
	assert.Equal(t, []string{in.Spoken}, sink.spoken)
}

func TestGuide_AllPassed(t *testing.T) {
	c, sink, _ := newController()

	_, ok := c.Guide([]entity.ValidationCheck{passing(entity.CheckFaceDetected), passing(entity.CheckDistance)})
	assert.False(t, ok)
	assert.Empty(t, sink.spoken)
}

func TestGuide_DebouncesIdenticalMessage(t *testing.T) {
	c, sink, clock := newController()
	checks := []entity.ValidationCheck{failing(entity.CheckDistance, "Move back")}

	_, ok := c.Guide(checks)
	require.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Guide(checks)
	assert.False(t, ok)
	assert.Len(t, sink.spoken, 1)

	clock.Advance(1500 * time.Millisecond)
	_, ok = c.Guide(checks)
	assert.True(t, ok)
	assert.Len(t, sink.spoken, 2)
}

func TestGuide_DifferentMessageInterrupts(t *testing.T) {
	c, sink, clock := newController()

	_, ok := c.Guide([]entity.ValidationCheck{failing(entity.CheckDistance, "Move back")})
	require.True(t, ok)

	clock.Advance(100 * time.Millisecond)
	in, ok := c.Guide([]entity.ValidationCheck{failing(entity.CheckRotation, "Turn head left")})
	require.True(t, ok)
	assert.Equal(t, "Look straight at the camera. Turn your face slightly to the left.", in.Spoken)
	assert.Len(t, sink.spoken, 2)

	// only the latest message's timer may clear the display
	clock.Advance(3900 * time.Millisecond)
	assert.Equal(t, 0, sink.cleared)
	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, 1, sink.cleared)
}

func TestGuide_ClearsAfterHold(t *testing.T) {
	c, sink, clock := newController()

	_, ok := c.Guide([]entity.ValidationCheck{failing(entity.CheckEyesOpen, "Open your eyes")})
	require.True(t, ok)

	clock.Advance(DefaultDebounce)
	assert.Equal(t, 0, sink.cleared)
	clock.Advance(DefaultHoldAfter)
	assert.Equal(t, 1, sink.cleared)
}

func TestCancel_StopsTimerAndResetsDebounce(t *testing.T) {
	c, sink, clock := newController()
	checks := []entity.ValidationCheck{failing(entity.CheckLighting, "Too dark")}

	_, ok := c.Guide(checks)
	require.True(t, ok)

	c.Cancel()
	assert.Equal(t, 1, sink.cleared)

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, sink.cleared)

	_, ok = c.Guide(checks)
	assert.True(t, ok)
}

func TestStop_SilencesUntilStart(t *testing.T) {
	c, sink, _ := newController()
	checks := []entity.ValidationCheck{failing(entity.CheckFaceDetected, "No face detected")}

	c.Stop()
	_, ok := c.Guide(checks)
	assert.False(t, ok)
	assert.Empty(t, sink.spoken)

	c.Start()
	_, ok = c.Guide(checks)
	assert.True(t, ok)
}

func TestSpoken(t *testing.T) {
	tests := []struct {
		check entity.ValidationCheck
		want  string
	}{
		{failing(entity.CheckFaceDetected, "Multiple faces detected"), "Only one person should be in frame. Please make sure no one else is visible."},
		{failing(entity.CheckFaceDetected, "No face detected"), "Position your face in the oval. Make sure you are well lit and facing the camera."},
		{failing(entity.CheckFaceInOval, "Move right"), "Move your face slightly to the right to centre it in the oval."},
		{failing(entity.CheckFaceInOval, "Move up"), "Move your face up a little to align with the guide."},
		{failing(entity.CheckTilt, "Tilt head right"), "Straighten your head. Tilt it slightly to the right."},
		{failing(entity.CheckTilt, "Waiting for face"), "Keep your head straight. Avoid tilting left or right for accurate measurement."},
		{failing(entity.CheckLighting, "Too bright"), "It is too bright. Reduce the light or move away from direct sunlight."},
		{failing(entity.CheckLighting, "Uneven lighting, shadows on face"), "Reduce shadows on your face. Try turning on a light in front of you."},
		{failing(entity.CheckLighting, "Checking lighting"), "Checking lighting"},
	}

	for _, tt := range tests {
		t.Run(string(tt.check.ID)+"/"+tt.check.Message, func(t *testing.T) {
			assert.Equal(t, tt.want, Spoken(tt.check))
		})
	}
}
