package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const levelLandmarksJSON = `{
	"left_eye": {"x": 0.4, "y": 0.45},
	"right_eye": {"x": 0.6, "y": 0.45},
	"face_left": {"x": 0.25, "y": 0.5},
	"face_right": {"x": 0.75, "y": 0.5}
}`

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestOverlayCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landmarks.json")
	require.NoError(t, os.WriteFile(path, []byte(levelLandmarksJSON), 0o600))

	out := run(t, "overlay",
		"--landmarks", path,
		"--face-width", "140",
		"--pd", "63",
		"--container-width", "400", "--container-height", "400",
		"--natural-width", "400", "--natural-height", "400",
	)

	var res struct {
		FrameID string `json:"frame_id"`
		Render  struct {
			X     float64 `json:"x"`
			Y     float64 `json:"y"`
			Scale float64 `json:"scale"`
		} `json:"render"`
		FitLabel string `json:"fit_label"`
	}
	require.NoError(t, jsoniter.UnmarshalFromString(out, &res))

	assert.Equal(t, "frame_1", res.FrameID)
	assert.InDelta(t, 200, res.Render.X, 1e-9)
	assert.InDelta(t, 180, res.Render.Y, 1e-9)
	assert.InDelta(t, 90.0/185.0, res.Render.Scale, 1e-9)
	assert.Equal(t, "Tight Fit", res.FitLabel)
}

func TestFramesCommand(t *testing.T) {
	out := run(t, "frames", "--face-width", "125")

	assert.Contains(t, out, "frame_2")
	assert.Contains(t, out, "55-18-142-141")
	assert.Contains(t, out, "Loose Fit")
}
