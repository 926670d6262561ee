package main

import (
	"PerfectFit/pkg/passport"
	"PerfectFit/pkg/utils"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cropInput     string
	cropOutput    string
	cropLandmarks string
)

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Cut a passport-style crop around the face",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		raw, err := os.ReadFile(cropInput)
		if err != nil {
			return err
		}
		img, err := utils.DecodeImageBytes(raw)
		if err != nil {
			return err
		}
		landmarks, err := readLandmarks(cropLandmarks)
		if err != nil {
			return err
		}

		res, ok := passport.Crop(img, landmarks)
		if !ok {
			return fmt.Errorf("no usable crop for these landmarks")
		}

		out, err := passport.EncodeJPEG(res.Image)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cropOutput, out, 0o644); err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"output":    cropOutput,
			"crop_rect": res.CropRect,
		})
	},
}

func init() {
	cropCmd.Flags().StringVarP(&cropInput, "input", "i", "", "Path to the source image")
	cropCmd.Flags().StringVarP(&cropOutput, "output", "o", "passport.jpg", "Path to the cropped JPEG")
	cropCmd.Flags().StringVarP(&cropLandmarks, "landmarks", "l", "", "Path to a JSON file with normalized face landmarks")
	cropCmd.MarkFlagRequired("input")
	cropCmd.MarkFlagRequired("landmarks")
	rootCmd.AddCommand(cropCmd)
}
