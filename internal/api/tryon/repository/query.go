package tryonRepository

const (
	queryListFrames = `
		SELECT
			id,
			name,
			image_asset,
			category,
			color,
			physical_width,
			lens_width,
			nose_bridge,
			temple_length,
			optical_center_distance_px,
			default_offset_x,
			default_offset_y,
			default_scale_adjust,
			default_rotation_adjust
		FROM glasses_frames
		WHERE active = TRUE
		ORDER BY id ASC
	`

	queryGetFrameByID = `
		SELECT
			id,
			name,
			image_asset,
			category,
			color,
			physical_width,
			lens_width,
			nose_bridge,
			temple_length,
			optical_center_distance_px,
			default_offset_x,
			default_offset_y,
			default_scale_adjust,
			default_rotation_adjust
		FROM glasses_frames
		WHERE id = :id AND active = TRUE
	`
)
