package tryonRepository

import (
	"PerfectFit/internal/api/tryon"
	"PerfectFit/internal/entity"
	"context"
)

// builtinFrames is the catalog served when no database is configured.
// OpticalCenterDistancePx is the lens-centre distance measured on each PNG.
var builtinFrames = []entity.GlassesFrame{
	{
		ID:                      "frame_1",
		Name:                    "Pink Cat-Eye",
		ImageAsset:              "frames/frame1.png",
		Category:                "cat-eye",
		Color:                   "Pink",
		PhysicalWidth:           127,
		LensWidth:               50,
		NoseBridge:              15,
		TempleLength:            135,
		OpticalCenterDistancePx: 185,
		DefaultAdjustments:      entity.DefaultAdjustments,
	},
	{
		ID:                      "frame_2",
		Name:                    "Blue Round",
		ImageAsset:              "frames/frame2.png",
		Category:                "round",
		Color:                   "Blue",
		PhysicalWidth:           122,
		LensWidth:               44,
		NoseBridge:              18,
		TempleLength:            125,
		OpticalCenterDistancePx: 170,
		DefaultAdjustments:      entity.DefaultAdjustments,
	},
	{
		ID:                      "frame_3",
		Name:                    "Black Aviator",
		ImageAsset:              "frames/frame3.png",
		Category:                "aviator",
		Color:                   "Black",
		PhysicalWidth:           141,
		LensWidth:               55,
		NoseBridge:              18,
		TempleLength:            142,
		OpticalCenterDistancePx: 200,
		DefaultAdjustments:      entity.DefaultAdjustments,
	},
}

type staticRepository struct {
	frames staticFrames
}

// NewStatic serves a fixed catalog. Every frame is validated here.
func NewStatic(frames []entity.GlassesFrame) (Repository, error) {
	if frames == nil {
		frames = builtinFrames
	}

	copied := make(staticFrames, len(frames))
	copy(copied, frames)
	for i := range copied {
		if err := copied[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &staticRepository{frames: copied}, nil
}

func (r *staticRepository) NewClient(tx bool) (Client, error) {
	noop := func() error { return nil }
	return Client{
		Frame:    r.frames,
		Commit:   noop,
		Rollback: noop,
	}, nil
}

type staticFrames []entity.GlassesFrame

func (f staticFrames) ListFrames(ctx context.Context) ([]entity.GlassesFrame, error) {
	out := make([]entity.GlassesFrame, len(f))
	copy(out, f)
	return out, nil
}

func (f staticFrames) GetFrameByID(ctx context.Context, id string) (entity.GlassesFrame, error) {
	for _, frame := range f {
		if frame.ID == id {
			return frame, nil
		}
	}
	return entity.GlassesFrame{}, tryon.ErrFrameNotFound
}
