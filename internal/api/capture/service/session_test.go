package captureService

import (
	"PerfectFit/internal/api/capture"
	captureRepository "PerfectFit/internal/api/capture/repository"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/guidance"
	"PerfectFit/pkg/utils"
	"PerfectFit/pkg/validation"
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type recordingOutbound struct {
	mu     sync.Mutex
	events []capture.OutboundEvent
}

func (r *recordingOutbound) Send(ev capture.OutboundEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingOutbound) ofType(t string) []capture.OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []capture.OutboundEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) AfterFunc(d time.Duration, f func()) guidance.Timer { return stubTimer{} }

type fakeDetector struct {
	glasses bool
	err     error
	calls   atomic.Int32
	images  chan string
}

func (f *fakeDetector) DetectGlasses(ctx context.Context, image string) (bool, error) {
	f.calls.Add(1)
	if f.images != nil {
		f.images <- image
	}
	return f.glasses, f.err
}

type fakeProcessor struct {
	removed    string
	removeErr  error
	measureErr error
	block      chan struct{}

	mu           sync.Mutex
	removeCalls  int
	measureInput string
}

func (f *fakeProcessor) RemoveGlasses(ctx context.Context, image string) (string, error) {
	f.mu.Lock()
	f.removeCalls++
	f.mu.Unlock()
	return f.removed, f.removeErr
}

func (f *fakeProcessor) Measure(ctx context.Context, image string) (*glassesapi.MeasureResult, error) {
	f.mu.Lock()
	f.measureInput = image
	f.mu.Unlock()

	if f.block != nil {
		close(f.block)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.measureErr != nil {
		return nil, f.measureErr
	}
	return &glassesapi.MeasureResult{
		Measurements: entity.Measurements{PD: 63, FaceWidth: 140},
		FaceShape:    "oval",
	}, nil
}

type failingRepo struct {
	captureRepository.Repository
}

func (failingRepo) Save(ctx context.Context, data *entity.CapturedData) error {
	return errors.New("store unavailable")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func goodLandmarks() entity.FaceLandmarks {
	return entity.FaceLandmarks{
		LeftEye:       entity.Point3D{X: 0.44, Y: 0.45},
		RightEye:      entity.Point3D{X: 0.56, Y: 0.45},
		NoseTip:       entity.Point3D{X: 0.5, Y: 0.52},
		LeftEar:       entity.Point3D{X: 0.33, Y: 0.48},
		RightEar:      entity.Point3D{X: 0.67, Y: 0.48},
		Chin:          entity.Point3D{X: 0.5, Y: 0.7},
		Forehead:      entity.Point3D{X: 0.5, Y: 0.3},
		LeftEyeUpper:  entity.Point3D{X: 0.44, Y: 0.44},
		LeftEyeLower:  entity.Point3D{X: 0.44, Y: 0.46},
		RightEyeUpper: entity.Point3D{X: 0.56, Y: 0.44},
		RightEyeLower: entity.Point3D{X: 0.56, Y: 0.46},
		FaceLeft:      entity.Point3D{X: 0.35, Y: 0.5},
		FaceRight:     entity.Point3D{X: 0.65, Y: 0.5},
	}
}

func grayFrame(t *testing.T, w, h int, gray uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = gray
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func goodFrame(t *testing.T) capture.FrameRequest {
	l := goodLandmarks()
	one := 1
	return capture.FrameRequest{
		Image:     grayFrame(t, 320, 240, 128),
		Landmarks: &l,
		FaceCount: &one,
	}
}

type harness struct {
	svc       ICaptureService
	repo      captureRepository.Repository
	detector  *fakeDetector
	processor *fakeProcessor
	out       *recordingOutbound
	session   *Session
}

func newHarness(t *testing.T, repo captureRepository.Repository, detector *fakeDetector, processor *fakeProcessor, opts ...Option) *harness {
	t.Helper()
	if repo == nil {
		repo = captureRepository.NewMemory()
	}

	cfg := DefaultConfig()
	cfg.StepTimeout = 5 * time.Second
	opts = append([]Option{
		WithConfig(cfg),
		WithClock(fixedClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}),
	}, opts...)

	svc := NewCaptureService(quietLogger(), repo, detector, processor, opts...)
	out := &recordingOutbound{}

	session, err := svc.OpenSession(context.Background(), out)
	require.NoError(t, err)

	_, err = session.Start()
	require.NoError(t, err)

	t.Cleanup(svc.Shutdown)
	return &harness{svc: svc, repo: repo, detector: detector, processor: processor, out: out, session: session}
}

func TestSession_AutoCaptureWithoutGlasses(t *testing.T) {
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{})

	res, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	require.True(t, res.AllChecksPassed, "%+v", res.Checks)

	h.session.Wait()

	m := h.session.Machine()
	assert.Equal(t, StateCaptured, m.State)
	assert.False(t, m.GlassesDetected)
	assert.Equal(t, 0, h.processor.removeCalls)

	data, err := h.svc.GetCaptured(context.Background(), h.session.ID())
	require.NoError(t, err)
	assert.Equal(t, h.session.ID(), data.ID)
	assert.Equal(t, data.RawImage, data.ProcessedImage)
	assert.Equal(t, data.RawImage, h.processor.measureInput)
	assert.Equal(t, goodLandmarks(), data.Landmarks)
	assert.Equal(t, 63.0, data.Measurements.PD)
	assert.Equal(t, "oval", data.FaceShape)
	assert.Nil(t, data.CropRect)

	assert.Len(t, h.out.ofType(capture.EventCaptured), 1)
	assert.NotEmpty(t, h.out.ofType(capture.EventReleaseCamera))

	var spoken []string
	for _, ev := range h.out.ofType(capture.EventSpeech) {
		spoken = append(spoken, ev.Speech.Text)
	}
	assert.Contains(t, spoken, relaxMessage)
}

func TestSession_AutoCaptureWithGlasses(t *testing.T) {
	processor := &fakeProcessor{removed: "data:image/jpeg;base64,cmVtb3ZlZA=="}
	h := newHarness(t, nil, &fakeDetector{glasses: true}, processor)

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	h.session.Wait()

	assert.Equal(t, StateCaptured, h.session.Machine().State)
	assert.Equal(t, 1, processor.removeCalls)
	assert.Equal(t, processor.removed, processor.measureInput)

	data, err := h.svc.GetCaptured(context.Background(), h.session.ID())
	require.NoError(t, err)
	assert.True(t, data.GlassesDetected)
	assert.Equal(t, processor.removed, data.ProcessedImage)
	assert.NotEqual(t, data.RawImage, data.ProcessedImage)
}

func TestSession_StepFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{measureErr: glassesapi.ErrUnsuccessful})

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	h.session.Wait()

	view := h.session.State()
	assert.Equal(t, string(StateError), view.State)
	assert.Equal(t, string(StepMeasure), view.FailedStep)
	assert.NotEmpty(t, view.Error)

	_, err = h.svc.GetCaptured(context.Background(), h.session.ID())
	assert.True(t, errors.Is(err, capture.ErrCaptureNotFound))
	assert.Empty(t, h.out.ofType(capture.EventCaptured))
	assert.NotEmpty(t, h.out.ofType(capture.EventError))

	view, err = h.svc.Retry(context.Background(), h.session.ID())
	require.NoError(t, err)
	assert.Equal(t, string(StateValidating), view.State)
}

func TestSession_PersistFailure(t *testing.T) {
	repo := failingRepo{Repository: captureRepository.NewMemory()}
	h := newHarness(t, repo, &fakeDetector{}, &fakeProcessor{})

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	h.session.Wait()

	view := h.session.State()
	assert.Equal(t, string(StateError), view.State)
	assert.Equal(t, string(StepPersist), view.FailedStep)
	assert.Nil(t, h.session.Captured())
}

func TestSession_FramesDuringProcessingDoNotRetrigger(t *testing.T) {
	processor := &fakeProcessor{block: make(chan struct{})}
	detector := &fakeDetector{}
	h := newHarness(t, nil, detector, processor)

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	<-processor.block

	for i := 0; i < 3; i++ {
		res, err := h.session.HandleFrame(context.Background(), goodFrame(t))
		require.NoError(t, err)
		assert.Empty(t, res.Checks)
	}
	assert.Equal(t, int32(1), detector.calls.Load())

	_, err = h.session.Capture()
	assert.True(t, errors.Is(err, capture.ErrCaptureInProgress))
}

func TestSession_TeardownAbandonsPipeline(t *testing.T) {
	processor := &fakeProcessor{block: make(chan struct{})}
	h := newHarness(t, nil, &fakeDetector{}, processor)

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	<-processor.block

	require.NoError(t, h.svc.CloseSession(h.session.ID()))
	h.session.Wait()

	m := h.session.Machine()
	assert.True(t, m.Closed)
	assert.Equal(t, StateProcessing, m.State)
	assert.Nil(t, h.session.Captured())
	assert.Empty(t, h.out.ofType(capture.EventCaptured))
	assert.Empty(t, h.out.ofType(capture.EventError))

	_, err = h.svc.GetCaptured(context.Background(), h.session.ID())
	assert.True(t, errors.Is(err, capture.ErrCaptureNotFound))

	_, err = h.session.HandleFrame(context.Background(), goodFrame(t))
	assert.True(t, errors.Is(err, capture.ErrSessionClosed))

	_, err = h.svc.Session(h.session.ID())
	assert.True(t, errors.Is(err, capture.ErrSessionNotFound))
}

func TestSession_ManualCapture(t *testing.T) {
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{})

	_, err := h.session.Capture()
	assert.True(t, errors.Is(err, capture.ErrNoLandmarks))

	dark := goodFrame(t)
	dark.Image = grayFrame(t, 320, 240, 20)
	res, err := h.session.HandleFrame(context.Background(), dark)
	require.NoError(t, err)
	require.False(t, res.AllChecksPassed)
	assert.Equal(t, string(StateValidating), h.session.State().State)

	guidanceEvents := h.out.ofType(capture.EventGuidance)
	require.NotEmpty(t, guidanceEvents)
	assert.Equal(t, validation.MsgTooDark, guidanceEvents[0].Guidance.Message)

	_, err = h.svc.ManualCapture(context.Background(), h.session.ID())
	require.NoError(t, err)
	h.session.Wait()
	assert.Equal(t, StateCaptured, h.session.Machine().State)
}

func TestSession_LandmarkOnlyFrameFailsSnapshot(t *testing.T) {
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{})

	frame := goodFrame(t)
	frame.Image = ""
	frame.Pixels = &validation.PixelStats{MeanLuminance: 128}

	res, err := h.session.HandleFrame(context.Background(), frame)
	require.NoError(t, err)
	require.True(t, res.AllChecksPassed)

	view := h.session.State()
	assert.Equal(t, string(StateError), view.State)
	assert.Equal(t, string(StepSnapshot), view.FailedStep)
	assert.Equal(t, capture.ErrNoFrame.Error(), view.Error)
	assert.NotEmpty(t, h.out.ofType(capture.EventError))
	assert.Equal(t, int32(0), h.detector.calls.Load())

	_, err = h.session.Retry()
	require.NoError(t, err)
	assert.Equal(t, string(StateValidating), h.session.State().State)

	// manual capture on the same kind of frame ends in the same state
	_, err = h.session.HandleFrame(context.Background(), capture.FrameRequest{
		Landmarks: frame.Landmarks,
		Pixels:    frame.Pixels,
	})
	require.NoError(t, err)
	assert.Equal(t, string(StateValidating), h.session.State().State)

	_, err = h.session.Capture()
	require.NoError(t, err)
	view = h.session.State()
	assert.Equal(t, string(StateError), view.State)
	assert.Equal(t, string(StepSnapshot), view.FailedStep)
}

func TestSession_PassportCrop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PassportCrop = true
	cfg.StepTimeout = 5 * time.Second
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{}, WithConfig(cfg))

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	h.session.Wait()

	data := h.session.Captured()
	require.NotNil(t, data)
	require.True(t, data.HasCrop())
	assert.Equal(t, 320.0, data.CropRect.FullWidth)

	img, err := utils.New().DecodeImage(data.RawImage)
	require.NoError(t, err)
	assert.Less(t, img.Bounds().Dx(), 320)
}

func TestTakeSnapshot_Mirrored(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			c := color.RGBA{A: 255}
			if x >= 32 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	l := goodLandmarks()

	shot, err := takeSnapshot(utils.New(), &previewFrame{image: img, landmarks: &l, mirrored: true}, false)
	require.NoError(t, err)
	assert.Equal(t, l, shot.landmarks)

	decoded, err := utils.DecodeImageBytes(shot.raw)
	require.NoError(t, err)
	left, _, _, _ := decoded.At(4, 16).RGBA()
	right, _, _, _ := decoded.At(60, 16).RGBA()
	assert.Greater(t, left, uint32(0xc000))
	assert.Less(t, right, uint32(0x4000))

	_, err = takeSnapshot(utils.New(), nil, false)
	assert.True(t, errors.Is(err, capture.ErrNoFrame))
}

func TestSession_SwitchCameraReleasesStream(t *testing.T) {
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{})

	view, err := h.session.SwitchCamera()
	require.NoError(t, err)
	assert.Equal(t, string(StateAwaitingPermission), view.State)
	assert.Len(t, h.out.ofType(capture.EventReleaseCamera), 1)

	res, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	assert.Empty(t, res.Checks)

	view, err = h.session.Start()
	require.NoError(t, err)
	assert.Equal(t, string(StateValidating), view.State)
}

type recordingStore struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (r *recordingStore) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploaded = append(r.uploaded, key)
	return "https://bucket.example/" + key, nil
}

func (r *recordingStore) DeleteFile(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, key)
	return nil
}

func TestSession_ImagesUploadedAndDeleted(t *testing.T) {
	store := &recordingStore{}
	h := newHarness(t, nil, &fakeDetector{}, &fakeProcessor{}, WithImageStore(store))

	_, err := h.session.HandleFrame(context.Background(), goodFrame(t))
	require.NoError(t, err)
	h.session.Wait()

	id := h.session.ID()
	data, err := h.svc.GetCaptured(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/captures/"+id+"/raw.jpg", data.RawImage)
	assert.Equal(t, data.RawImage, data.ProcessedImage)
	assert.Equal(t, []string{"captures/" + id + "/raw.jpg"}, store.uploaded)

	require.NoError(t, h.svc.DeleteCaptured(context.Background(), id))
	assert.ElementsMatch(t, []string{"captures/" + id + "/raw.jpg", "captures/" + id + "/processed.jpg"}, store.deleted)

	_, err = h.svc.GetCaptured(context.Background(), id)
	assert.ErrorIs(t, err, capture.ErrCaptureNotFound)
}
