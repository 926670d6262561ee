package main

import (
	tryonService "PerfectFit/internal/api/tryon/service"
	"PerfectFit/pkg/mapper"
	"PerfectFit/pkg/overlay"
	"PerfectFit/pkg/utils"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	compositeGeom     geometry
	compositeInput    string
	compositeOutput   string
	compositeAssetDir string
)

var compositeCmd = &cobra.Command{
	Use:   "composite",
	Short: "Draw a catalog frame onto a face image",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		raw, err := os.ReadFile(compositeInput)
		if err != nil {
			return err
		}
		face, err := utils.DecodeImageBytes(raw)
		if err != nil {
			return err
		}
		landmarks, err := readLandmarks(compositeGeom.LandmarksPath)
		if err != nil {
			return err
		}
		frame, err := lookupFrame(ctx, compositeGeom.FrameID)
		if err != nil {
			return err
		}

		u := utils.New()
		asset, err := tryonService.NewImageLoader(compositeAssetDir, u).Load(ctx, frame.ImageAsset)
		if err != nil {
			return fmt.Errorf("load asset %s: %w", frame.ImageAsset, err)
		}

		engine := overlay.New(overlay.Options{
			SnapDegrees: compositeGeom.SnapDegrees,
			Anchor:      overlay.Anchor(compositeGeom.Anchor),
		})
		b := face.Bounds()
		natural := mapper.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}

		transform, ok := engine.Compute(frame, landmarks, compositeGeom.FaceWidthMm, compositeGeom.PDMm, natural, natural)
		if !ok {
			return fmt.Errorf("degenerate geometry: check face width and pd")
		}

		out := overlay.Composite(face, asset, overlay.Render(transform, frame.DefaultAdjustments))
		_, jpeg, err := u.EncodeJPEGDataURL(out, 90)
		if err != nil {
			return err
		}
		if err := os.WriteFile(compositeOutput, jpeg, 0o644); err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"output":    compositeOutput,
			"frame_id":  frame.ID,
			"fit_label": transform.Fit.Label(),
		})
	},
}

func init() {
	compositeGeom.register(compositeCmd)
	compositeCmd.Flags().StringVarP(&compositeInput, "input", "i", "", "Path to the face image")
	compositeCmd.Flags().StringVarP(&compositeOutput, "output", "o", "composite.jpg", "Path to the output JPEG")
	compositeCmd.Flags().StringVar(&compositeAssetDir, "assets", "./assets", "Directory holding frame assets")
	compositeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(compositeCmd)
}
