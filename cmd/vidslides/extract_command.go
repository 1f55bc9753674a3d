package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vidslides/internal/deck"
	"vidslides/internal/extractor"
	"vidslides/internal/logging"
	"vidslides/internal/media"
	"vidslides/internal/media/ffmpeg"
	"vidslides/internal/textutil"
)

// newFrameSource is replaced in tests.
var newFrameSource = func(ffmpegBinary, ffprobeBinary string) media.FrameSource {
	return ffmpeg.NewSource(ffmpegBinary, ffprobeBinary)
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir string
		title     string
		subtitle  string
		threshold float64
		interval  float64
		skip      float64
		fill      bool
		format    string
		quality   int
		noDeck    bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Extract slides from a local video without the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			videoPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}

			ext := cfg.Extraction
			flags := cmd.Flags()
			if !flags.Changed("threshold") {
				threshold = ext.SimilarityThreshold
			}
			if !flags.Changed("min-interval") {
				interval = ext.MinIntervalSeconds
			}
			if !flags.Changed("skip") {
				skip = ext.SkipFirstSeconds
			}
			if !flags.Changed("fill") {
				fill = ext.FillMode
			}
			if !flags.Changed("format") {
				format = ext.ImageFormat
			}
			if !flags.Changed("quality") {
				quality = ext.ImageQuality
			}

			stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
			if strings.TrimSpace(outputDir) == "" {
				outputDir = stem + "_slides"
			}
			outputDir, err = filepath.Abs(outputDir)
			if err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}

			level := "warn"
			if verbose {
				level = "info"
			}
			logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			frames := newFrameSource(ext.FFmpegBinary, ext.FFprobeBinary)
			result, err := extractor.New(frames, "", logger).Extract(cmd.Context(), extractor.Request{
				VideoPath:           videoPath,
				OutputDir:           filepath.Join(outputDir, "images"),
				ManifestPath:        filepath.Join(outputDir, "slides.json"),
				SimilarityThreshold: threshold,
				MinIntervalSeconds:  interval,
				SkipFirstSeconds:    skip,
				ImageFormat:         format,
				ImageQuality:        quality,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Extracted %d slides from %s (%s)\n",
				len(result.Slides), filepath.Base(videoPath), extractor.FormatTimestamp(result.DurationSeconds))
			fmt.Fprintf(out, "Manifest: %s\n", result.ManifestPath)
			if noDeck {
				return nil
			}

			deckTitle := title
			if strings.TrimSpace(deckTitle) == "" {
				deckTitle = stem
			}
			built, err := deck.NewBuilder(logger).Build(cmd.Context(), deck.Request{
				Slides:     result.Slides,
				OutputPath: filepath.Join(outputDir, textutil.SafeFilename(deckTitle, ".pptx")),
				Title:      title,
				Subtitle:   subtitle,
				FillMode:   fill,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Deck: %s\n", built.DeckPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputDir, "output", "o", "", "Output directory (default <video>_slides)")
	flags.StringVar(&title, "title", "", "Title slide text")
	flags.StringVar(&subtitle, "subtitle", "", "Subtitle text")
	flags.Float64Var(&threshold, "threshold", 0, "Similarity threshold in [0,1]")
	flags.Float64Var(&interval, "min-interval", 0, "Minimum seconds between slides")
	flags.Float64Var(&skip, "skip", 0, "Seconds to skip at the start")
	flags.BoolVar(&fill, "fill", true, "Scale slides to cover the page (false letterboxes)")
	flags.StringVar(&format, "format", "", "Slide image format (jpg or png)")
	flags.IntVar(&quality, "quality", 0, "JPEG quality (10-100)")
	flags.BoolVar(&noDeck, "no-deck", false, "Only extract slide images")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log extraction progress")
	return cmd
}
