package captureService

import (
	"PerfectFit/internal/api/capture"
	"fmt"
)

type State string

const (
	StateAwaitingPermission State = "awaiting-permission"
	StateValidating         State = "validating"
	StateCapturing          State = "capturing"
	StateProcessing         State = "processing"
	StateCaptured           State = "captured"
	StateError              State = "error"
)

type Step string

const (
	StepSnapshot      Step = "snapshot"
	StepDetectGlasses Step = "detect-glasses"
	StepRemoveGlasses Step = "remove-glasses"
	StepMeasure       Step = "measure"
	StepPersist       Step = "persist"
)

type Event interface {
	event()
}

type (
	StreamAcquired struct{}
	StreamFailed   struct{ Err string }
	FrameEvaluated struct {
		AllChecksPassed bool
		HasLandmarks    bool
	}
	ManualCapture  struct{ HasLandmarks bool }
	SnapshotTaken  struct{}
	StepSucceeded  struct {
		Step            Step
		GlassesDetected bool
	}
	StepFailed struct {
		Step Step
		Err  string
	}
	Retry        struct{}
	SwitchCamera struct{}
	Teardown     struct{}
)

func (StreamAcquired) event() {}
func (StreamFailed) event()   {}
func (FrameEvaluated) event() {}
func (ManualCapture) event()  {}
func (SnapshotTaken) event()  {}
func (StepSucceeded) event()  {}
func (StepFailed) event()     {}
func (Retry) event()          {}
func (SwitchCamera) event()   {}
func (Teardown) event()       {}

type EffectKind string

const (
	EffectCancelGuidance EffectKind = "cancel-guidance"
	EffectStartGuidance  EffectKind = "start-guidance"
	EffectSnapshot       EffectKind = "snapshot"
	EffectRunStep        EffectKind = "run-step"
	EffectPersist        EffectKind = "persist"
	EffectReleaseCamera  EffectKind = "release-camera"
)

type Effect struct {
	Kind EffectKind
	Step Step
}

// Machine is the capture state. It is a value: Transition returns the next
// machine and the side effects the caller must run, in order.
type Machine struct {
	State           State
	Step            Step
	GlassesDetected bool
	FailedStep      Step
	LastError       string
	Closed          bool
}

func NewMachine() Machine {
	return Machine{State: StateAwaitingPermission}
}

// InFlight reports whether a capture pipeline owns the session.
func (m Machine) InFlight() bool {
	return m.State == StateCapturing || m.State == StateProcessing
}

func (m Machine) Transition(ev Event) (Machine, []Effect, error) {
	if m.Closed {
		return m, nil, capture.ErrSessionClosed
	}

	switch e := ev.(type) {
	case Teardown:
		next := m
		next.Closed = true
		return next, []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectReleaseCamera}}, nil

	case StreamAcquired:
		if m.State != StateAwaitingPermission {
			return m, nil, invalid(m, ev)
		}
		return m.enter(StateValidating), []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectStartGuidance}}, nil

	case StreamFailed:
		if m.State != StateValidating && m.State != StateAwaitingPermission {
			return m, nil, invalid(m, ev)
		}
		next := m.enter(StateError)
		next.LastError = e.Err
		return next, []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectReleaseCamera}}, nil

	case SwitchCamera:
		if m.InFlight() {
			return m, nil, capture.ErrCaptureInProgress
		}
		if m.State != StateValidating && m.State != StateAwaitingPermission {
			return m, nil, invalid(m, ev)
		}
		return m.enter(StateAwaitingPermission), []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectReleaseCamera}}, nil

	case FrameEvaluated:
		// frames keep arriving while a capture runs; they never re-trigger it
		if m.State != StateValidating || !e.AllChecksPassed || !e.HasLandmarks {
			return m, nil, nil
		}
		return m.enter(StateCapturing), []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectSnapshot}}, nil

	case ManualCapture:
		if m.InFlight() {
			return m, nil, capture.ErrCaptureInProgress
		}
		if m.State != StateValidating {
			return m, nil, invalid(m, ev)
		}
		if !e.HasLandmarks {
			return m, nil, capture.ErrNoLandmarks
		}
		return m.enter(StateCapturing), []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectSnapshot}}, nil

	case SnapshotTaken:
		if m.State != StateCapturing {
			return m, nil, invalid(m, ev)
		}
		next := m.enter(StateProcessing)
		next.Step = StepDetectGlasses
		return next, []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectRunStep, Step: StepDetectGlasses}}, nil

	case StepSucceeded:
		if m.State != StateProcessing || e.Step != m.Step {
			return m, nil, invalid(m, ev)
		}
		return m.advance(e)

	case StepFailed:
		if m.State != StateProcessing && m.State != StateCapturing {
			return m, nil, invalid(m, ev)
		}
		next := m.enter(StateError)
		next.FailedStep = e.Step
		next.LastError = e.Err
		next.GlassesDetected = m.GlassesDetected
		return next, []Effect{{Kind: EffectCancelGuidance}}, nil

	case Retry:
		if m.State != StateError && m.State != StateCaptured {
			if m.InFlight() {
				return m, nil, capture.ErrCaptureInProgress
			}
			return m, nil, invalid(m, ev)
		}
		if m.State == StateError && m.FailedStep == "" {
			// the stream itself failed; the camera has to be acquired again
			return m.enter(StateAwaitingPermission), []Effect{{Kind: EffectCancelGuidance}}, nil
		}
		return m.enter(StateValidating), []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectStartGuidance}}, nil
	}

	return m, nil, fmt.Errorf("%w: unknown event %T", capture.ErrInvalidTransition, ev)
}

func (m Machine) advance(e StepSucceeded) (Machine, []Effect, error) {
	next := m
	switch e.Step {
	case StepDetectGlasses:
		next.GlassesDetected = e.GlassesDetected
		if e.GlassesDetected {
			next.Step = StepRemoveGlasses
		} else {
			next.Step = StepMeasure
		}
		return next, []Effect{{Kind: EffectRunStep, Step: next.Step}}, nil

	case StepRemoveGlasses:
		next.Step = StepMeasure
		return next, []Effect{{Kind: EffectRunStep, Step: StepMeasure}}, nil

	case StepMeasure:
		next.Step = StepPersist
		return next, []Effect{{Kind: EffectPersist}}, nil

	case StepPersist:
		captured := m.enter(StateCaptured)
		captured.GlassesDetected = m.GlassesDetected
		return captured, []Effect{{Kind: EffectCancelGuidance}, {Kind: EffectReleaseCamera}}, nil
	}

	return m, nil, invalid(m, e)
}

// enter resets per-attempt fields on every state change.
func (m Machine) enter(s State) Machine {
	return Machine{State: s, Closed: m.Closed}
}

func invalid(m Machine, ev Event) error {
	return fmt.Errorf("%w: %T in state %s", capture.ErrInvalidTransition, ev, m.State)
}
