package captureService

import (
	"PerfectFit/internal/api/capture"
	captureRepository "PerfectFit/internal/api/capture/repository"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/glassesapi"
	"PerfectFit/pkg/metrics"
	"PerfectFit/pkg/utils"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// GlassesDetector reports whether the face in the image wears glasses.
type GlassesDetector interface {
	DetectGlasses(ctx context.Context, image string) (bool, error)
}

type GlassesProcessor interface {
	RemoveGlasses(ctx context.Context, image string) (string, error)
	Measure(ctx context.Context, image string) (*glassesapi.MeasureResult, error)
}

// ImageStore uploads captured images and returns their public location.
type ImageStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageRemover is implemented by image stores that can delete objects.
type ImageRemover interface {
	DeleteFile(ctx context.Context, key string) error
}

func imageKey(id, name string) string {
	return fmt.Sprintf("captures/%s/%s.jpg", id, name)
}

// attempt carries the intermediate results of one capture. It is owned by
// the pipeline goroutine and only published through persist.
type attempt struct {
	snapshot  snapshot
	processed string
	glasses   bool
	measure   *glassesapi.MeasureResult
}

type pipeline struct {
	log         *logrus.Logger
	detector    GlassesDetector
	processor   GlassesProcessor
	images      ImageStore
	repo        captureRepository.Repository
	metrics     *metrics.Metrics
	stepTimeout time.Duration
}

// run executes one remote step. Every failure is fatal for the attempt.
func (p *pipeline) run(ctx context.Context, step Step, a *attempt) (StepSucceeded, error) {
	c, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	start := time.Now()
	res, err := p.exec(c, step, a)
	p.metrics.ObserveStep(string(step), time.Since(start), err)
	if err != nil {
		return StepSucceeded{}, &capture.StepError{Step: string(step), Err: err}
	}
	return res, nil
}

func (p *pipeline) exec(ctx context.Context, step Step, a *attempt) (StepSucceeded, error) {
	switch step {
	case StepDetectGlasses:
		glasses, err := p.detector.DetectGlasses(ctx, a.snapshot.image)
		if err != nil {
			return StepSucceeded{}, err
		}
		a.glasses = glasses
		a.processed = a.snapshot.image
		return StepSucceeded{Step: step, GlassesDetected: glasses}, nil

	case StepRemoveGlasses:
		processed, err := p.processor.RemoveGlasses(ctx, a.snapshot.image)
		if err != nil {
			return StepSucceeded{}, err
		}
		a.processed = processed
		return StepSucceeded{Step: step}, nil

	case StepMeasure:
		res, err := p.processor.Measure(ctx, a.processed)
		if err != nil {
			return StepSucceeded{}, err
		}
		a.measure = res
		return StepSucceeded{Step: step}, nil
	}

	return StepSucceeded{}, fmt.Errorf("unknown step %q", step)
}

// build assembles the record without storing it. Images are uploaded when a
// store is configured, otherwise kept inline as data URLs.
func (p *pipeline) build(ctx context.Context, id string, a *attempt, now time.Time) (*entity.CapturedData, error) {
	if a.measure == nil {
		return nil, fmt.Errorf("capture %s has no measurements", id)
	}

	c, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	raw := a.snapshot.image
	processed := a.processed
	if p.images != nil {
		var err error
		if raw, err = p.upload(c, id, "raw", a.snapshot.raw); err != nil {
			return nil, err
		}
		if processed == a.snapshot.image {
			processed = raw
		} else if processed, err = p.uploadDataURL(c, id, "processed", processed); err != nil {
			return nil, err
		}
	}

	return &entity.CapturedData{
		ID:              id,
		RawImage:        raw,
		ProcessedImage:  processed,
		GlassesDetected: a.glasses,
		Landmarks:       a.snapshot.landmarks,
		CropRect:        a.snapshot.crop,
		Measurements:    a.measure.Measurements,
		FaceShape:       a.measure.FaceShape,
		Timestamp:       now.UTC(),
	}, nil
}

func (p *pipeline) upload(ctx context.Context, id, name string, data []byte) (string, error) {
	key := imageKey(id, name)
	location, err := p.images.UploadBytes(ctx, key, data, "image/jpeg")
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"capture_id": id,
			"key":        key,
			"error":      err.Error(),
		}).Error("Failed to upload captured image")
		return "", err
	}
	return location, nil
}

func (p *pipeline) uploadDataURL(ctx context.Context, id, name, dataURL string) (string, error) {
	data, err := utils.DecodeBase64Image(dataURL)
	if err != nil {
		return "", err
	}
	return p.upload(ctx, id, name, data)
}
