// Package guidance turns failing validation checks into at most one user
// instruction at a time, debouncing repeats.
package guidance

import (
	"PerfectFit/internal/entity"
	"sync"
	"time"
)

const (
	DefaultDebounce  = 3 * time.Second
	DefaultHoldAfter = time.Second
)

// Sink presents guidance. Speak replaces whatever is currently being spoken.
type Sink interface {
	Show(msg string)
	Speak(text string)
	Clear()
}

type Instruction struct {
	CheckID entity.CheckID `json:"check_id"`
	Message string         `json:"message"`
	Spoken  string         `json:"spoken"`
}

type Options struct {
	Debounce  time.Duration
	HoldAfter time.Duration
}

func DefaultOptions() Options {
	return Options{Debounce: DefaultDebounce, HoldAfter: DefaultHoldAfter}
}

type Controller struct {
	mu    sync.Mutex
	sink  Sink
	clock Clock
	opts  Options

	running    bool
	last       string
	lastAt     time.Time
	clearTimer Timer
	generation uint64
}

func New(sink Sink, clock Clock, opts Options) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.HoldAfter < 0 {
		opts.HoldAfter = 0
	}
	return &Controller{sink: sink, clock: clock, opts: opts}
}

func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

// Stop cancels pending guidance; Guide is a no-op until the next Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.running = false
}

// Cancel drops the in-flight message and its clear timer. The next Guide call
// is never debounced against the cancelled message.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Guide emits the instruction for the highest priority failing check. ok is
// false when every check passed, the controller is stopped, or the message
// was suppressed as a repeat.
func (c *Controller) Guide(checks []entity.ValidationCheck) (Instruction, bool) {
	check, failing := firstFailing(checks)
	if !failing {
		return Instruction{}, false
	}

	in := Instruction{CheckID: check.ID, Message: check.Message, Spoken: Spoken(check)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return Instruction{}, false
	}

	now := c.clock.Now()
	if in.Spoken == c.last && now.Sub(c.lastAt) < c.opts.Debounce {
		return Instruction{}, false
	}

	c.stopTimerLocked()
	c.generation++
	gen := c.generation

	c.last = in.Spoken
	c.lastAt = now
	c.sink.Show(in.Message)
	c.sink.Speak(in.Spoken)

	c.clearTimer = c.clock.AfterFunc(c.opts.Debounce+c.opts.HoldAfter, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			return
		}
		c.clearTimer = nil
		c.sink.Clear()
	})

	return in, true
}

func (c *Controller) cancelLocked() {
	c.stopTimerLocked()
	c.generation++
	if c.last != "" {
		c.sink.Clear()
	}
	c.last = ""
	c.lastAt = time.Time{}
}

func (c *Controller) stopTimerLocked() {
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
}

func firstFailing(checks []entity.ValidationCheck) (entity.ValidationCheck, bool) {
	byID := make(map[entity.CheckID]entity.ValidationCheck, len(checks))
	for _, ch := range checks {
		byID[ch.ID] = ch
	}
	for _, id := range entity.CheckPriority {
		if ch, ok := byID[id]; ok && !ch.Passed {
			return ch, true
		}
	}
	return entity.ValidationCheck{}, false
}
