package main

import (
	"PerfectFit/pkg/fit"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var framesFaceWidth float64

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "List the built-in frame catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := lookupCatalog()
		if err != nil {
			return err
		}
		frames, err := repo.ListFrames(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDIMENSIONS\tFIT")
		for _, f := range frames {
			label := "-"
			if framesFaceWidth > 0 {
				label = fit.Classify(f.PhysicalWidth, framesFaceWidth).Label()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Dimensions(), label)
		}
		return w.Flush()
	},
}

func init() {
	framesCmd.Flags().Float64Var(&framesFaceWidth, "face-width", 0, "Face width in mm to classify each frame against")
	rootCmd.AddCommand(framesCmd)
}
