package tryonRepository

import (
	"PerfectFit/internal/api/tryon"
	"PerfectFit/internal/entity"
	contextPkg "PerfectFit/pkg/context"
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type GlassesFrameDB struct {
	ID                      sql.NullString  `db:"id"`
	Name                    sql.NullString  `db:"name"`
	ImageAsset              sql.NullString  `db:"image_asset"`
	Category                sql.NullString  `db:"category"`
	Color                   sql.NullString  `db:"color"`
	PhysicalWidth           sql.NullFloat64 `db:"physical_width"`
	LensWidth               sql.NullFloat64 `db:"lens_width"`
	NoseBridge              sql.NullFloat64 `db:"nose_bridge"`
	TempleLength            sql.NullFloat64 `db:"temple_length"`
	OpticalCenterDistancePx sql.NullFloat64 `db:"optical_center_distance_px"`
	DefaultOffsetX          sql.NullFloat64 `db:"default_offset_x"`
	DefaultOffsetY          sql.NullFloat64 `db:"default_offset_y"`
	DefaultScaleAdjust      sql.NullFloat64 `db:"default_scale_adjust"`
	DefaultRotationAdjust   sql.NullFloat64 `db:"default_rotation_adjust"`
}

func (r *frameRepository) ListFrames(c context.Context) ([]entity.GlassesFrame, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []GlassesFrameDB

	if err := r.q.SelectContext(c, &rows, queryListFrames); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListFrames execution err")
		return nil, err
	}

	frames := make([]entity.GlassesFrame, 0, len(rows))
	for _, row := range rows {
		frame := r.makeGlassesFrame(row)
		if err := frame.Validate(); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"frame_id":   frame.ID,
				"error":      err.Error(),
			}).Error("Frame catalog contains an uncalibrated frame")
			return nil, err
		}
		frames = append(frames, frame)
	}

	return frames, nil
}

func (r *frameRepository) GetFrameByID(c context.Context, id string) (entity.GlassesFrame, error) {
	requestID := contextPkg.GetRequestID(c)
	var row GlassesFrameDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetFrameByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetFrameByID named query preparation err")
		return entity.GlassesFrame{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"frame_id":   id,
			}).Warn("GetFrameByID no rows found")
			return entity.GlassesFrame{}, tryon.ErrFrameNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetFrameByID execution err")
		return entity.GlassesFrame{}, err
	}

	frame := r.makeGlassesFrame(row)
	if err := frame.Validate(); err != nil {
		return entity.GlassesFrame{}, err
	}
	return frame, nil
}

func (r *frameRepository) makeGlassesFrame(row GlassesFrameDB) entity.GlassesFrame {
	scale := row.DefaultScaleAdjust.Float64
	if !row.DefaultScaleAdjust.Valid || scale <= 0 {
		scale = entity.DefaultAdjustments.ScaleAdjust
	}

	return entity.GlassesFrame{
		ID:                      row.ID.String,
		Name:                    row.Name.String,
		ImageAsset:              row.ImageAsset.String,
		Category:                row.Category.String,
		Color:                   row.Color.String,
		PhysicalWidth:           row.PhysicalWidth.Float64,
		LensWidth:               row.LensWidth.Float64,
		NoseBridge:              row.NoseBridge.Float64,
		TempleLength:            row.TempleLength.Float64,
		OpticalCenterDistancePx: row.OpticalCenterDistancePx.Float64,
		DefaultAdjustments: entity.AdjustmentValues{
			OffsetX:        row.DefaultOffsetX.Float64,
			OffsetY:        row.DefaultOffsetY.Float64,
			ScaleAdjust:    scale,
			RotationAdjust: row.DefaultRotationAdjust.Float64,
		},
	}
}
