package main

import (
	"PerfectFit/pkg/mapper"
	"PerfectFit/pkg/overlay"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	overlayGeom      geometry
	overlayContainer [2]float64
	overlayNatural   [2]float64
)

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Compute the overlay transform of a frame for a set of landmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		landmarks, err := readLandmarks(overlayGeom.LandmarksPath)
		if err != nil {
			return err
		}
		frame, err := lookupFrame(cmd.Context(), overlayGeom.FrameID)
		if err != nil {
			return err
		}

		engine := overlay.New(overlay.Options{
			SnapDegrees: overlayGeom.SnapDegrees,
			Anchor:      overlay.Anchor(overlayGeom.Anchor),
		})
		container := mapper.Size{Width: overlayContainer[0], Height: overlayContainer[1]}
		natural := mapper.Size{Width: overlayNatural[0], Height: overlayNatural[1]}

		transform, ok := engine.Compute(frame, landmarks, overlayGeom.FaceWidthMm, overlayGeom.PDMm, container, natural)
		if !ok {
			return fmt.Errorf("degenerate geometry: check face width, pd and sizes")
		}

		render := overlay.Render(transform, frame.DefaultAdjustments)
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"frame_id":  frame.ID,
			"transform": transform,
			"render":    render,
			"css":       render.CSS(),
			"fit_label": transform.Fit.Label(),
		})
	},
}

func init() {
	overlayGeom.register(overlayCmd)
	overlayCmd.Flags().Float64Var(&overlayContainer[0], "container-width", 640, "Display container width in px")
	overlayCmd.Flags().Float64Var(&overlayContainer[1], "container-height", 480, "Display container height in px")
	overlayCmd.Flags().Float64Var(&overlayNatural[0], "natural-width", 640, "Natural image width in px")
	overlayCmd.Flags().Float64Var(&overlayNatural[1], "natural-height", 480, "Natural image height in px")
	rootCmd.AddCommand(overlayCmd)
}
