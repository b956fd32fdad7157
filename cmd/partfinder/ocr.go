package main

import (
	"fmt"

	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/internal/ocr"
	"github.com/ggorockee/partfinder/internal/ocr/tesseract"
	"github.com/spf13/cobra"
)

func ocrCMD(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ocr [image]",
		Short: "Print the part identifier candidates found in a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			extractor := ocr.NewExtractor(
				&ocr.Preprocessor{TempDir: c.OCR.TempDir},
				tesseract.New(c.OCR.Languages),
				c.OCR.MinTokenLength,
				nil,
			)

			candidates := extractor.CandidatesFromImage(cmd.Context(), args[0])
			if len(candidates) == 0 {
				return fmt.Errorf("no part identifier recognized in %s", args[0])
			}
			for _, cand := range candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", cand.Text, cand.Confidence)
			}
			return nil
		},
	}
}
