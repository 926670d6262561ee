package captureService

import (
	"PerfectFit/internal/api/capture"
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/passport"
	"PerfectFit/pkg/utils"
	"encoding/base64"
	"fmt"
	"image"
)

const snapshotJPEGQuality = 92

// previewFrame is the latest frame that passed through validation.
// Landmarks are in display space.
type previewFrame struct {
	image     image.Image
	landmarks *entity.FaceLandmarks
	mirrored  bool
}

type snapshot struct {
	image     string
	raw       []byte
	landmarks entity.FaceLandmarks
	crop      *entity.CropRect
}

// takeSnapshot produces the still sent to the remote service. Mirrored
// previews are flipped so the image matches the landmarks the user saw.
func takeSnapshot(u utils.IUtils, f *previewFrame, passportCrop bool) (snapshot, error) {
	if f == nil || f.image == nil {
		return snapshot{}, capture.ErrNoFrame
	}
	if f.landmarks == nil {
		return snapshot{}, capture.ErrNoLandmarks
	}

	img := f.image
	if f.mirrored {
		img = u.FlipHorizontal(img)
	}

	shot := snapshot{landmarks: *f.landmarks}

	if passportCrop {
		if res, ok := passport.Crop(img, shot.landmarks); ok {
			raw, err := passport.EncodeJPEG(res.Image)
			if err != nil {
				return snapshot{}, fmt.Errorf("encode passport crop: %w", err)
			}
			rect := res.CropRect
			shot.crop = &rect
			shot.raw = raw
			shot.image = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)
			return shot, nil
		}
	}

	dataURL, raw, err := u.EncodeJPEGDataURL(img, snapshotJPEGQuality)
	if err != nil {
		return snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	shot.image = dataURL
	shot.raw = raw
	return shot, nil
}
