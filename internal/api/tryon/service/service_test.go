package tryonService

import (
	"PerfectFit/internal/api/capture"
	captureRepository "PerfectFit/internal/api/capture/repository"
	"PerfectFit/internal/api/tryon"
	tryonRepository "PerfectFit/internal/api/tryon/repository"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/overlay"
	"PerfectFit/pkg/utils"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeLoader struct {
	images map[string]image.Image
	calls  []string
}

func (f *fakeLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	f.calls = append(f.calls, ref)
	if strings.HasPrefix(ref, "data:") {
		return utils.New().DecodeImage(ref)
	}
	img, ok := f.images[ref]
	if !ok {
		return nil, errors.New("missing asset")
	}
	return img, nil
}

type fakeSelector struct {
	height float64
	err    error
	got    glassesapi.SelectFrameRequest
}

func (f *fakeSelector) SelectFrame(ctx context.Context, req glassesapi.SelectFrameRequest) (*glassesapi.SelectFrameResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	h := f.height
	return &glassesapi.SelectFrameResult{FittingHeight: &h}, nil
}

type fakeStore struct {
	uploaded map[string][]byte
}

func (f *fakeStore) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.uploaded[key] = data
	return "https://bucket.example/" + key, nil
}

func (f *fakeStore) PresignUrl(fileUrl string) (string, error) {
	return fileUrl + "?signed=1", nil
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func levelLandmarks() entity.FaceLandmarks {
	return entity.FaceLandmarks{
		LeftEye:   entity.Point3D{X: 0.40, Y: 0.45},
		RightEye:  entity.Point3D{X: 0.60, Y: 0.45},
		FaceLeft:  entity.Point3D{X: 0.25, Y: 0.5},
		FaceRight: entity.Point3D{X: 0.75, Y: 0.5},
	}
}

type fixture struct {
	svc      ITryOnService
	captures captureRepository.Repository
	loader   *fakeLoader
	selector *fakeSelector
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	frames, err := tryonRepository.NewStatic(nil)
	require.NoError(t, err)

	f := &fixture{
		captures: captureRepository.NewMemory(),
		loader: &fakeLoader{images: map[string]image.Image{
			"frames/frame1.png": solid(185, 60, color.RGBA{R: 255, A: 255}),
		}},
		selector: &fakeSelector{height: 22.5},
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	opts = append([]Option{WithImageLoader(f.loader), WithFrameSelector(f.selector)}, opts...)
	f.svc = NewTryOnService(log, frames, f.captures, opts...)
	return f
}

func (f *fixture) storeCapture(t *testing.T, id string) {
	t.Helper()

	dataURL, _, err := utils.New().EncodeJPEGDataURL(solid(400, 400, color.Gray{Y: 128}), 92)
	require.NoError(t, err)

	require.NoError(t, f.captures.Save(context.Background(), &entity.CapturedData{
		ID:             id,
		RawImage:       dataURL,
		ProcessedImage: dataURL,
		Landmarks:      levelLandmarks(),
		Measurements:   entity.Measurements{PD: 63, FaceWidth: 140},
		FaceShape:      "oval",
	}))
}

func TestComputeOverlay_FromLandmarks(t *testing.T) {
	f := newFixture(t)
	lm := levelLandmarks()

	res, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:     "frame_1",
		Landmarks:   &lm,
		FaceWidthMm: 140,
		PDMm:        63,
		Container:   tryon.Size{Width: 400, Height: 400},
		Natural:     tryon.Size{Width: 400, Height: 400},
	})
	require.NoError(t, err)

	require.NotNil(t, res.Transform)
	assert.False(t, res.Placeholder)
	assert.InDelta(t, 90.0/185.0, res.Transform.ScaleFactor, 1e-9)
	assert.InDelta(t, 200, res.Render.X, 1e-9)
	assert.InDelta(t, 180, res.Render.Y, 1e-9)
	assert.Equal(t, entity.FitTight, res.Fit)
	assert.Equal(t, "Tight Fit", res.FitLabel)
	assert.Equal(t, entity.DefaultAdjustments, res.Adjustments)
	assert.Equal(t, res.Render.CSS(), res.CSS)
}

func TestComputeOverlay_DegenerateFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t)
	lm := levelLandmarks()

	res, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:     "frame_1",
		Landmarks:   &lm,
		FaceWidthMm: 140,
		Container:   tryon.Size{Width: 400, Height: 400},
		Natural:     tryon.Size{Width: 400, Height: 400},
	})
	require.NoError(t, err)

	assert.True(t, res.Placeholder)
	assert.Nil(t, res.Transform)
	assert.Equal(t, overlay.Placeholder(), res.Render)
}

func TestComputeOverlay_RequiresLandmarksOrSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{FrameID: "frame_1"})
	assert.ErrorIs(t, err, tryon.ErrMissingLandmarks)

	_, err = f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{FrameID: "frame_9"})
	assert.ErrorIs(t, err, tryon.ErrFrameNotFound)

	_, err = f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{FrameID: "frame_1", SessionID: "nope"})
	assert.ErrorIs(t, err, capture.ErrCaptureNotFound)
}

func TestComputeOverlay_ProductSurfaceDropsOffsets(t *testing.T) {
	f := newFixture(t)
	f.storeCapture(t, "s1")

	_, err := f.svc.SaveAdjustments(context.Background(), "s1", entity.AdjustmentValues{OffsetX: 10, OffsetY: -4, ScaleAdjust: 1.2})
	require.NoError(t, err)

	res, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:   "frame_1",
		SessionID: "s1",
		Container: tryon.Size{Width: 640, Height: 480},
		Surface:   tryon.SurfaceProduct,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Transform)

	assert.InDelta(t, 320, res.Render.X, 1e-9)
	assert.InDelta(t, 216, res.Render.Y, 1e-9)
	assert.InDelta(t, 144.0/185.0*1.2, res.Render.Scale, 1e-9)
	assert.Zero(t, res.Adjustments.OffsetX)
	assert.Zero(t, res.Adjustments.OffsetY)
}

func TestComputeOverlay_ProductSurfaceDefaults(t *testing.T) {
	f := newFixture(t)
	f.storeCapture(t, "s1")

	res, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:   "frame_1",
		SessionID: "s1",
		Container: tryon.Size{Width: 640, Height: 480},
		Surface:   tryon.SurfaceProduct,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ProductSurfaceAdjustments.ForContainSurface(), res.Adjustments)
}

func TestComputeOverlay_DimensionsOverrideWidth(t *testing.T) {
	f := newFixture(t)
	lm := levelLandmarks()

	res, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:     "frame_1",
		Landmarks:   &lm,
		FaceWidthMm: 140,
		PDMm:        63,
		Container:   tryon.Size{Width: 400, Height: 400},
		Natural:     tryon.Size{Width: 400, Height: 400},
		Dimensions:  "50-15-135-150",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.FitLoose, res.Fit)

	_, err = f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:    "frame_1",
		Landmarks:  &lm,
		Dimensions: "50-15",
	})
	assert.ErrorIs(t, err, entity.ErrInvalidDimensions)
}

func TestComputeOverlay_CropRectMapsLandmarks(t *testing.T) {
	f := newFixture(t)
	lm := levelLandmarks()

	res, err := f.svc.ComputeOverlay(context.Background(), tryon.OverlayRequest{
		FrameID:     "frame_1",
		Landmarks:   &lm,
		CropRect:    &entity.CropRect{FullWidth: 800, FullHeight: 400, SX: 200, SY: 0, SW: 400, SH: 400},
		FaceWidthMm: 140,
		PDMm:        63,
		Container:   tryon.Size{Width: 400, Height: 400},
		Natural:     tryon.Size{Width: 400, Height: 400},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Transform)

	// The face spans 400px of the 800px source, so the whole 400px crop.
	assert.InDelta(t, 200, res.Render.X, 1e-9)
	assert.InDelta(t, 180.0/185.0, res.Transform.ScaleFactor, 1e-9)
}

func TestClassifyFit(t *testing.T) {
	f := newFixture(t)

	res := f.svc.ClassifyFit(tryon.FitRequest{FrameWidthMm: 141, FaceWidthMm: 140})
	assert.Equal(t, entity.FitPerfect, res.Fit)
	assert.Equal(t, "Perfect Fit", res.Label)
	assert.Equal(t, "This frame fits your face perfectly!", res.Message)
	assert.InDelta(t, 1, res.DiffMm, 1e-9)
}

func TestListFrames(t *testing.T) {
	f := newFixture(t)

	views, err := f.svc.ListFrames(context.Background(), 125)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "50-15-135-127", views[0].Dimensions)
	assert.Equal(t, entity.FitPerfect, views[0].Fit)
	assert.Equal(t, entity.FitTight, views[1].Fit)
	assert.Equal(t, entity.FitLoose, views[2].Fit)

	views, err = f.svc.ListFrames(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, views[0].Fit)
}

func TestAdjustments(t *testing.T) {
	f := newFixture(t)
	f.storeCapture(t, "s1")
	ctx := context.Background()

	got, err := f.svc.GetAdjustments(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.Saved)
	assert.Equal(t, entity.DefaultAdjustments, got.Adjustments)

	saved, err := f.svc.SaveAdjustments(ctx, "s1", entity.AdjustmentValues{OffsetX: 3, RotationAdjust: 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, saved.Adjustments.ScaleAdjust)

	got, err = f.svc.GetAdjustments(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Saved)
	assert.Equal(t, saved.Adjustments, got.Adjustments)

	_, err = f.svc.SaveAdjustments(ctx, "missing", entity.DefaultAdjustments)
	assert.ErrorIs(t, err, capture.ErrCaptureNotFound)
}

func TestSelectFrame(t *testing.T) {
	f := newFixture(t)
	f.storeCapture(t, "s1")

	info, err := f.svc.SelectFrame(context.Background(), "s1", tryon.SelectFrameRequest{FrameID: "frame_3"})
	require.NoError(t, err)

	assert.Equal(t, "Black Aviator", info.Name)
	assert.Equal(t, entity.FitPerfect, info.Fit)
	require.NotNil(t, info.FittingHeight)
	assert.Equal(t, 22.5, *info.FittingHeight)
	assert.Equal(t, "55-18-142-141", f.selector.got.Dimensions)

	stored, err := f.captures.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, stored.SelectedFrameInfo)
	assert.Equal(t, "frame_3", stored.SelectedFrameInfo.FrameID)
}

func TestSelectFrame_SelectorFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.storeCapture(t, "s1")
	f.selector.err = glassesapi.ErrUnsuccessful

	info, err := f.svc.SelectFrame(context.Background(), "s1", tryon.SelectFrameRequest{FrameID: "frame_1"})
	require.NoError(t, err)
	assert.Nil(t, info.FittingHeight)
}

func TestComposite(t *testing.T) {
	f := newFixture(t)
	f.storeCapture(t, "s1")

	res, err := f.svc.Composite(context.Background(), "s1", tryon.CompositeRequest{FrameID: "frame_1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Image, "data:image/jpeg;base64,"))
	require.NotNil(t, res.SelectedFrame)
	assert.Equal(t, res.Image, res.SelectedFrame.CompositeURL)
	assert.Equal(t, entity.FitTight, res.SelectedFrame.Fit)

	img, err := utils.New().DecodeImage(res.Image)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())

	r, g, _, _ := img.At(200, 180).RGBA()
	assert.Greater(t, r>>8, uint32(180))
	assert.Less(t, g>>8, uint32(90))

	r, g, _, _ = img.At(20, 20).RGBA()
	assert.InDelta(t, 128, float64(r>>8), 8)
	assert.InDelta(t, 128, float64(g>>8), 8)

	stored, err := f.captures.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, stored.SelectedFrameInfo)
	assert.Equal(t, "frame_1", stored.SelectedFrameInfo.FrameID)
	require.NotNil(t, stored.FrameAdjustments)
	assert.Equal(t, entity.DefaultAdjustments, *stored.FrameAdjustments)
}

func TestComposite_UploadsWhenStoreConfigured(t *testing.T) {
	store := &fakeStore{uploaded: map[string][]byte{}}
	f := newFixture(t, WithImageStore(store))
	f.storeCapture(t, "s1")

	res, err := f.svc.Composite(context.Background(), "s1", tryon.CompositeRequest{FrameID: "frame_1"})
	require.NoError(t, err)

	assert.Contains(t, store.uploaded, "captures/s1/composite-frame_1.jpg")
	assert.Equal(t, "https://bucket.example/captures/s1/composite-frame_1.jpg", res.SelectedFrame.CompositeURL)
}

func TestComposite_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.captures.Save(ctx, &entity.CapturedData{ID: "bare", Landmarks: levelLandmarks()}))
	_, err := f.svc.Composite(ctx, "bare", tryon.CompositeRequest{FrameID: "frame_1"})
	assert.ErrorIs(t, err, tryon.ErrMissingMeasurements)

	f.storeCapture(t, "s1")
	_, err = f.svc.Composite(ctx, "s1", tryon.CompositeRequest{FrameID: "frame_2"})
	assert.ErrorIs(t, err, tryon.ErrAssetUnavailable)

	_, err = f.svc.Composite(ctx, "s1", tryon.CompositeRequest{FrameID: "frame_x"})
	assert.ErrorIs(t, err, tryon.ErrFrameNotFound)
}

func TestFaceShape(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.FaceShape("Oval")
	require.NoError(t, err)
	assert.Equal(t, "Round, Small Round", rec.ShapesToAvoid)

	_, err = f.svc.FaceShape("triangle")
	assert.ErrorIs(t, err, tryon.ErrFaceShapeNotFound)
}

func TestImageLoader_LocalAndCached(t *testing.T) {
	dir := t.TempDir()
	u := utils.New()

	_, raw, err := u.EncodeJPEGDataURL(solid(10, 10, color.White), 90)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.jpg"), raw, 0o600))

	loader := NewImageLoader(dir, u)
	img, err := loader.Load(context.Background(), "frame.jpg")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	require.NoError(t, os.Remove(filepath.Join(dir, "frame.jpg")))
	again, err := loader.Load(context.Background(), "frame.jpg")
	require.NoError(t, err)
	assert.Same(t, img, again)

	_, err = loader.Load(context.Background(), "../../etc/passwd")
	assert.Error(t, err)

	_, err = loader.Load(context.Background(), "")
	assert.ErrorIs(t, err, utils.ErrEmptyImage)
}
