package captureService

import (
	"PerfectFit/internal/api/capture"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/guidance"
	"PerfectFit/pkg/utils"
	"PerfectFit/pkg/validation"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const relaxMessage = "You can relax now. Image captured."

// Outbound receives the events of one session. Send must not block.
type Outbound interface {
	Send(ev capture.OutboundEvent)
}

// Session is the runtime of one capture flow. It owns the machine, the
// guidance controller and at most one pipeline goroutine.
type Session struct {
	id    string
	deps  *deps
	out   Outbound
	guide *guidance.Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	speechGen atomic.Uint64

	// guarded by frameMu
	frameMu  sync.Mutex
	pixels   *validation.PixelStats
	pixelsAt time.Time

	mu       sync.Mutex
	machine  Machine
	latest   *previewFrame
	attempt  *attempt
	captured *entity.CapturedData
}

func newSession(id string, d *deps, out Outbound) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      id,
		deps:    d,
		out:     out,
		ctx:     ctx,
		cancel:  cancel,
		machine: NewMachine(),
	}
	s.guide = guidance.New(sessionSink{s: s}, d.clock, d.cfg.Guidance)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() capture.StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) Machine() Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine
}

// Captured returns the record of the last successful capture, if any.
func (s *Session) Captured() *entity.CapturedData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}

// Start reports that the camera stream is live.
func (s *Session) Start() (capture.StateView, error) {
	return s.apply(StreamAcquired{})
}

// StreamFailed reports that the camera could not be opened or was lost.
func (s *Session) StreamFailed(reason string) (capture.StateView, error) {
	return s.apply(StreamFailed{Err: reason})
}

func (s *Session) Capture() (capture.StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasLandmarks := s.latest != nil && s.latest.landmarks != nil
	err := s.applyLocked(ManualCapture{HasLandmarks: hasLandmarks})
	return s.viewLocked(), err
}

func (s *Session) Retry() (capture.StateView, error) {
	return s.apply(Retry{})
}

func (s *Session) SwitchCamera() (capture.StateView, error) {
	return s.apply(SwitchCamera{})
}

// Close tears the session down. A running pipeline is abandoned: its context
// is cancelled first so nothing it does afterwards reaches the store.
func (s *Session) Close() {
	s.cancel()

	s.mu.Lock()
	closed := s.machine.Closed
	if !closed {
		if err := s.applyLocked(Teardown{}); err != nil {
			s.deps.log.WithFields(logrus.Fields{
				"session_id": s.id,
				"error":      err.Error(),
			}).Warn("Teardown rejected")
		}
		s.attempt = nil
		s.latest = nil
	}
	s.mu.Unlock()

	s.guide.Stop()
	if !closed {
		s.deps.metrics.SessionClosed()
	}
}

// Wait blocks until the pipeline goroutine, if any, has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// HandleFrame validates one preview frame and may trigger the automatic
// capture. Frames arriving outside validation are dropped.
func (s *Session) HandleFrame(ctx context.Context, req capture.FrameRequest) (validation.Result, error) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	s.deps.metrics.FrameReceived()

	s.mu.Lock()
	m := s.machine
	s.mu.Unlock()
	if m.Closed {
		return validation.Result{}, capture.ErrSessionClosed
	}
	if m.State != StateValidating {
		s.deps.metrics.FrameDropped()
		return validation.Result{}, nil
	}

	var img image.Image
	if req.Image != "" {
		decoded, err := s.deps.utils.DecodeImage(req.Image)
		if err != nil {
			s.deps.metrics.FrameDropped()
			return validation.Result{}, fmt.Errorf("%w: %v", capture.ErrInvalidFrame, err)
		}
		img = decoded
	}

	sample, err := s.sample(ctx, req, img)
	if err != nil {
		return validation.Result{}, err
	}

	// Landmarks in the sample are raw; validation and the snapshot work in
	// display space.
	display := sample.Landmarks
	if display != nil && req.Mirrored {
		mirrored := display.Mirrored()
		display = &mirrored
	}
	sample.Landmarks = display

	res := s.deps.engine.Evaluate(sample)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Closed {
		return res, capture.ErrSessionClosed
	}
	if s.machine.State != StateValidating {
		s.deps.metrics.FrameDropped()
		return res, nil
	}

	s.latest = &previewFrame{image: img, landmarks: display, mirrored: req.Mirrored}

	for _, c := range res.Checks {
		if !c.Passed {
			s.deps.metrics.CheckFailed(string(c.ID))
		}
	}

	out := res
	s.out.Send(capture.OutboundEvent{Type: capture.EventValidation, Validation: &out})

	if in, ok := s.guide.Guide(res.Checks); ok {
		s.deps.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"check":      in.CheckID,
		}).Debug("Guidance issued")
	}

	// A frame without an image still triggers; the snapshot then fails the
	// same way a manual capture would.
	err = s.applyLocked(FrameEvaluated{
		AllChecksPassed: res.AllChecksPassed,
		HasLandmarks:    display != nil,
	})
	return res, err
}

// sample fills in landmarks and pixel statistics for one frame. Client
// supplied values take precedence over the provider and the image.
func (s *Session) sample(ctx context.Context, req capture.FrameRequest, img image.Image) (validation.Sample, error) {
	sample := validation.Sample{
		Landmarks:   req.Landmarks,
		FrameWidth:  req.Width,
		FrameHeight: req.Height,
	}
	if req.FaceCount != nil {
		sample.FaceCount = *req.FaceCount
	}
	if img != nil && sample.FrameWidth == 0 {
		b := img.Bounds()
		sample.FrameWidth = float64(b.Dx())
		sample.FrameHeight = float64(b.Dy())
	}

	if req.Landmarks == nil && req.FaceCount == nil && img != nil && s.deps.landmarks != nil {
		raw, err := utils.DecodeBase64Image(req.Image)
		if err != nil {
			return sample, fmt.Errorf("%w: %v", capture.ErrInvalidFrame, err)
		}
		lr, err := s.deps.landmarks.DetectLandmarks(ctx, raw)
		if err != nil {
			// a provider outage reads as "no face" so validation keeps running
			s.deps.log.WithFields(logrus.Fields{
				"session_id": s.id,
				"error":      err.Error(),
			}).Warn("Landmark provider failed")
		} else {
			sample.FaceCount = lr.FaceCount
			sample.Landmarks = lr.Landmarks
		}
	}

	switch {
	case req.Pixels != nil:
		sample.Pixels = req.Pixels
	case img != nil && sample.Landmarks != nil:
		now := s.deps.clock.Now()
		if s.pixels == nil || now.Sub(s.pixelsAt) >= s.deps.cfg.PixelStatsInterval {
			stats := validation.PixelStatsFromImage(img, validation.FaceRegion(*sample.Landmarks, img.Bounds()))
			s.pixels = &stats
			s.pixelsAt = now
		}
		sample.Pixels = s.pixels
	default:
		sample.Pixels = s.pixels
	}

	return sample, nil
}

func (s *Session) apply(ev Event) (capture.StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.applyLocked(ev)
	return s.viewLocked(), err
}

// applyLocked runs one transition and its effects. RunStep and Persist are
// carried out by runPipeline, which follows the machine's current step.
func (s *Session) applyLocked(ev Event) error {
	prev := s.machine
	next, effects, err := prev.Transition(ev)
	if err != nil {
		return err
	}
	s.machine = next

	if next.State != prev.State || next.Step != prev.Step || next.Closed != prev.Closed {
		view := s.viewLocked()
		s.out.Send(capture.OutboundEvent{Type: capture.EventState, State: &view})
	}

	if next.State != prev.State {
		switch next.State {
		case StateCaptured:
			s.deps.metrics.CaptureFinished("captured")
		case StateError:
			s.deps.metrics.CaptureFinished("error")
			s.out.Send(capture.OutboundEvent{Type: capture.EventError, Error: next.LastError})
		}
	}

	for _, eff := range effects {
		switch eff.Kind {
		case EffectCancelGuidance:
			s.guide.Cancel()
		case EffectStartGuidance:
			s.guide.Start()
		case EffectReleaseCamera:
			s.latest = nil
			s.out.Send(capture.OutboundEvent{Type: capture.EventReleaseCamera})
		case EffectSnapshot:
			return s.snapshotLocked()
		}
	}
	return nil
}

func (s *Session) snapshotLocked() error {
	shot, err := takeSnapshot(s.deps.utils, s.latest, s.deps.cfg.PassportCrop)
	if err != nil {
		s.deps.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"error":      err.Error(),
		}).Error("Snapshot failed")
		return s.applyLocked(StepFailed{Step: StepSnapshot, Err: err.Error()})
	}

	a := &attempt{snapshot: shot}
	s.attempt = a
	if err := s.applyLocked(SnapshotTaken{}); err != nil {
		s.attempt = nil
		return err
	}

	sessionSink{s: s}.Speak(relaxMessage)

	s.wg.Add(1)
	go s.runPipeline(a)
	return nil
}

// runPipeline drives the remote steps in order. It stops as soon as the
// attempt is no longer current, which is how teardown abandons it.
func (s *Session) runPipeline(a *attempt) {
	defer s.wg.Done()

	log := s.deps.log.WithField("session_id", s.id)
	log.Info("Capture processing started")

	for {
		s.mu.Lock()
		if s.attempt != a || s.machine.State != StateProcessing {
			s.mu.Unlock()
			return
		}
		step := s.machine.Step
		s.mu.Unlock()

		if step == StepPersist {
			s.persist(a)
			return
		}

		res, err := s.deps.pipeline.run(s.ctx, step, a)

		s.mu.Lock()
		if s.attempt != a || s.machine.Closed {
			s.mu.Unlock()
			log.WithField("step", step).Info("Capture abandoned")
			return
		}

		var ev Event = res
		if err != nil {
			log.WithFields(logrus.Fields{
				"step":  step,
				"error": err.Error(),
			}).Error("Capture step failed")
			msg := err.Error()
			var se *capture.StepError
			if errors.As(err, &se) {
				msg = se.Err.Error()
			}
			ev = StepFailed{Step: step, Err: msg}
		}

		applyErr := s.applyLocked(ev)
		s.mu.Unlock()
		if applyErr != nil {
			log.WithField("error", applyErr.Error()).Error("Capture transition rejected")
			return
		}
	}
}

// persist builds the record outside the lock, then stores it and enters
// Captured in one critical section. A failed write leaves no record behind.
func (s *Session) persist(a *attempt) {
	data, buildErr := s.deps.pipeline.build(s.ctx, s.id, a, s.deps.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != a || s.machine.Closed {
		return
	}
	s.attempt = nil

	if buildErr == nil {
		ctx, cancel := context.WithTimeout(s.ctx, s.deps.pipeline.stepTimeout)
		buildErr = s.deps.pipeline.repo.Save(ctx, data)
		cancel()
	}
	if buildErr != nil {
		s.deps.log.WithFields(logrus.Fields{
			"session_id": s.id,
			"error":      buildErr.Error(),
		}).Error("Failed to persist capture")
		_ = s.applyLocked(StepFailed{Step: StepPersist, Err: buildErr.Error()})
		return
	}

	s.captured = data
	if err := s.applyLocked(StepSucceeded{Step: StepPersist}); err != nil {
		return
	}
	s.out.Send(capture.OutboundEvent{Type: capture.EventCaptured, Captured: data})
	s.deps.log.WithFields(logrus.Fields{
		"session_id":       s.id,
		"glasses_detected": data.GlassesDetected,
		"pd":               data.Measurements.PD,
	}).Info("Capture completed")
}

func (s *Session) viewLocked() capture.StateView {
	return capture.StateView{
		SessionID:       s.id,
		State:           string(s.machine.State),
		Step:            string(s.machine.Step),
		FailedStep:      string(s.machine.FailedStep),
		Error:           s.machine.LastError,
		GlassesDetected: s.machine.GlassesDetected,
		Closed:          s.machine.Closed,
	}
}

// sessionSink forwards guidance to the client. It never takes the session
// lock; the controller calls it while the lock may be held.
type sessionSink struct {
	s *Session
}

func (k sessionSink) Show(msg string) {
	k.s.out.Send(capture.OutboundEvent{
		Type:     capture.EventGuidance,
		Guidance: &capture.GuidanceView{Message: msg},
	})
}

// Speak sends the text right away without a TTS backend. With one, audio is
// synthesized in the background and dropped if newer speech superseded it.
func (k sessionSink) Speak(text string) {
	s := k.s
	gen := s.speechGen.Add(1)

	if s.deps.speech == nil {
		s.out.Send(capture.OutboundEvent{Type: capture.EventSpeech, Speech: &capture.SpeechView{Text: text}})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
		defer cancel()

		audio, err := s.deps.speech.Synthesize(ctx, text)
		if s.ctx.Err() != nil || s.speechGen.Load() != gen {
			return
		}
		if err != nil {
			s.deps.log.WithFields(logrus.Fields{
				"session_id": s.id,
				"error":      err.Error(),
			}).Warn("Speech synthesis failed, sending text")
			audio = nil
		}
		s.out.Send(capture.OutboundEvent{Type: capture.EventSpeech, Speech: &capture.SpeechView{Text: text, Audio: audio}})
	}()
}

func (k sessionSink) Clear() {
	k.s.speechGen.Add(1)
	k.s.out.Send(capture.OutboundEvent{Type: capture.EventGuidanceClear})
}
