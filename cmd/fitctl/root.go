package main

import (
	tryonRepository "PerfectFit/internal/api/tryon/repository"
	"PerfectFit/internal/entity"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

// geometry holds the flags shared by commands that place a frame on a face.
type geometry struct {
	LandmarksPath string
	FrameID       string
	FaceWidthMm   float64
	PDMm          float64
	SnapDegrees   float64
	Anchor        string
}

func (g *geometry) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&g.LandmarksPath, "landmarks", "l", "", "Path to a JSON file with normalized face landmarks")
	cmd.Flags().StringVarP(&g.FrameID, "frame", "f", "frame_1", "Catalog frame id")
	cmd.Flags().Float64Var(&g.FaceWidthMm, "face-width", 0, "Measured face width in mm")
	cmd.Flags().Float64Var(&g.PDMm, "pd", 0, "Measured pupillary distance in mm")
	cmd.Flags().Float64Var(&g.SnapDegrees, "snap", 3, "Rotation below this many degrees is snapped to level")
	cmd.Flags().StringVar(&g.Anchor, "anchor", "eye-midpoint", "Overlay anchor: eye-midpoint, bridge")
	cmd.MarkFlagRequired("landmarks")
}

var rootCmd = &cobra.Command{
	Use:     "fitctl",
	Short:   "Offline eyewear overlay, passport crop and composite tool",
	Version: Version,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readLandmarks(path string) (entity.FaceLandmarks, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.FaceLandmarks{}, err
	}

	var l entity.FaceLandmarks
	if err := jsoniter.Unmarshal(raw, &l); err != nil {
		return entity.FaceLandmarks{}, fmt.Errorf("parse landmarks %s: %w", path, err)
	}
	return l, nil
}

func lookupCatalog() (tryonRepository.FrameReader, error) {
	repo, err := tryonRepository.NewStatic(nil)
	if err != nil {
		return nil, err
	}
	client, err := repo.NewClient(false)
	if err != nil {
		return nil, err
	}
	return client.Frame, nil
}

func lookupFrame(ctx context.Context, id string) (entity.GlassesFrame, error) {
	catalog, err := lookupCatalog()
	if err != nil {
		return entity.GlassesFrame{}, err
	}
	return catalog.GetFrameByID(ctx, id)
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := jsoniter.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
