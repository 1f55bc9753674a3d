package extractor_test

import (
	"context"
	"errors"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidslides/internal/extractor"
	"vidslides/internal/logging"
	"vidslides/internal/services"
	"vidslides/internal/testsupport"
)

func newVideo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "download", "lecture.mp4")
	testsupport.WriteFile(t, video, 128)
	return dir, video
}

func request(dir, video string) extractor.Request {
	return extractor.Request{
		VideoPath:           video,
		OutputDir:           filepath.Join(dir, "slides", "images"),
		ManifestPath:        filepath.Join(dir, "slides", "slides.json"),
		SimilarityThreshold: 0.95,
		MinIntervalSeconds:  2,
		ImageFormat:         "jpg",
		ImageQuality:        90,
	}
}

func TestExtractSceneChange(t *testing.T) {
	dir, video := newVideo(t)
	ex := extractor.New(testsupport.SceneChangeSource(), dir, logging.NewNop())

	result, err := ex.Extract(context.Background(), request(dir, video))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(result.Slides))
	}
	first, second := result.Slides[0], result.Slides[1]
	if first.TimestampSeconds != 0 || first.Similarity != nil {
		t.Fatalf("unexpected first slide: %+v", first)
	}
	if math.Abs(second.TimestampSeconds-5.0) > 0.1 {
		t.Fatalf("expected second slide near 5s, got %.2f", second.TimestampSeconds)
	}
	if second.Similarity == nil || *second.Similarity >= 0.95 {
		t.Fatalf("expected recorded similarity below threshold, got %v", second.Similarity)
	}
	if first.Filename != "slide_0001.jpg" || second.Filename != "slide_0002.jpg" {
		t.Fatalf("unexpected filenames %q %q", first.Filename, second.Filename)
	}
	if second.Timestamp != "0:00:05" {
		t.Fatalf("unexpected timestamp label %q", second.Timestamp)
	}
	if result.FPS != 10 || result.TotalFrames != 100 || result.DurationSeconds != 10 {
		t.Fatalf("unexpected video stats: %+v", result)
	}

	file, err := os.Open(first.Path)
	if err != nil {
		t.Fatalf("open slide: %v", err)
	}
	defer file.Close()
	img, err := jpeg.Decode(file)
	if err != nil {
		t.Fatalf("decode slide: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 180 {
		t.Fatalf("unexpected slide size %v", img.Bounds())
	}
	if first.Width != 320 || first.Height != 180 {
		t.Fatalf("unexpected recorded size %dx%d", first.Width, first.Height)
	}
}

func TestExtractHonoursSkipFirst(t *testing.T) {
	dir, video := newVideo(t)
	source := testsupport.SceneChangeSource()
	ex := extractor.New(source, dir, logging.NewNop())

	req := request(dir, video)
	req.SkipFirstSeconds = 3
	result, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, slide := range result.Slides {
		if slide.TimestampSeconds < 3 {
			t.Fatalf("slide at %.2f precedes skip window", slide.TimestampSeconds)
		}
	}
	if len(result.Slides) != 2 || result.Slides[0].TimestampSeconds != 3 {
		t.Fatalf("expected first slide at 3s, got %+v", result.Slides)
	}
}

func TestExtractEnforcesMinimumInterval(t *testing.T) {
	dir, video := newVideo(t)
	// Alternate every second; an interval of 3s must space slides out.
	source := &testsupport.SceneSource{FPS: 10}
	for i := 0; i < 10; i++ {
		source.Scenes = append(source.Scenes, testsupport.Scene{Frames: 10, Frame: testsupport.SplitFrame(i%2 == 0)})
	}
	ex := extractor.New(source, dir, logging.NewNop())

	req := request(dir, video)
	req.MinIntervalSeconds = 3
	result, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Slides) < 2 {
		t.Fatalf("expected several slides, got %d", len(result.Slides))
	}
	for i := 1; i < len(result.Slides); i++ {
		gap := result.Slides[i].TimestampSeconds - result.Slides[i-1].TimestampSeconds
		if gap < 3-1e-9 {
			t.Fatalf("slides %d and %d only %.2fs apart", i, i+1, gap)
		}
	}
}

func TestExtractFallsBackToDefaultFPS(t *testing.T) {
	dir, video := newVideo(t)
	source := &testsupport.SceneSource{Scenes: []testsupport.Scene{{Frames: 25, Frame: testsupport.SplitFrame(true)}}}
	ex := extractor.New(source, dir, logging.NewNop())

	req := request(dir, video)
	req.ImageFormat = "png"
	result, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.FPS != 25 || result.DurationSeconds != 1 {
		t.Fatalf("expected 25fps fallback, got fps=%v duration=%v", result.FPS, result.DurationSeconds)
	}
	file, err := os.Open(result.Slides[0].Path)
	if err != nil {
		t.Fatalf("open slide: %v", err)
	}
	defer file.Close()
	if _, err := png.Decode(file); err != nil {
		t.Fatalf("expected png slide: %v", err)
	}
}

func TestExtractDurationIsFrameCountOverFPS(t *testing.T) {
	dir, video := newVideo(t)
	fps := 30000.0 / 1001.0
	source := &testsupport.SceneSource{FPS: fps, Scenes: []testsupport.Scene{{Frames: 7, Frame: testsupport.SplitFrame(true)}}}
	ex := extractor.New(source, dir, logging.NewNop())

	result, err := ex.Extract(context.Background(), request(dir, video))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := 7 / fps; result.DurationSeconds != want {
		t.Fatalf("duration = %v, want unrounded %v", result.DurationSeconds, want)
	}
}

func TestExtractMissingVideo(t *testing.T) {
	dir := t.TempDir()
	source := testsupport.SceneChangeSource()
	ex := extractor.New(source, dir, logging.NewNop())

	_, err := ex.Extract(context.Background(), request(dir, filepath.Join(dir, "absent.mp4")))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(source.Opened()) != 0 {
		t.Fatal("decoder must not be opened for a missing file")
	}
}

func TestExtractDecoderOpenFailure(t *testing.T) {
	dir, video := newVideo(t)
	source := &testsupport.SceneSource{OpenErr: errors.New("moov atom not found")}
	ex := extractor.New(source, dir, logging.NewNop())

	_, err := ex.Extract(context.Background(), request(dir, video))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExtractImageWriteFailureLeavesNoManifest(t *testing.T) {
	dir, video := newVideo(t)
	ex := extractor.New(testsupport.SceneChangeSource(), dir, logging.NewNop())

	req := request(dir, video)
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// A directory squatting on the first slide name makes the write fail.
	if err := os.MkdirAll(filepath.Join(req.OutputDir, "slide_0001.jpg"), 0o755); err != nil {
		t.Fatalf("mkdir blocker: %v", err)
	}
	if _, err := ex.Extract(context.Background(), req); err == nil {
		t.Fatal("expected image write failure")
	}
	if _, err := os.Stat(req.ManifestPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("manifest must not exist after failure, stat err=%v", err)
	}
}

func TestExtractRejectsInvalidParameters(t *testing.T) {
	dir, video := newVideo(t)
	ex := extractor.New(testsupport.SceneChangeSource(), dir, logging.NewNop())

	cases := []struct {
		name   string
		mutate func(*extractor.Request)
	}{
		{name: "threshold", mutate: func(r *extractor.Request) { r.SimilarityThreshold = 1.2 }},
		{name: "interval", mutate: func(r *extractor.Request) { r.MinIntervalSeconds = -1 }},
		{name: "skip", mutate: func(r *extractor.Request) { r.SkipFirstSeconds = -0.5 }},
		{name: "format", mutate: func(r *extractor.Request) { r.ImageFormat = "gif" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := request(dir, video)
			tc.mutate(&req)
			if _, err := ex.Extract(context.Background(), req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestExtractDecodeErrorAborts(t *testing.T) {
	dir, video := newVideo(t)
	source := testsupport.SceneChangeSource()
	source.FailAt = 30
	ex := extractor.New(source, dir, logging.NewNop())

	if _, err := ex.Extract(context.Background(), request(dir, video)); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	dir, video := newVideo(t)
	ex := extractor.New(testsupport.SceneChangeSource(), dir, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ex.Extract(ctx, request(dir, video)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir, video := newVideo(t)
	ex := extractor.New(testsupport.SceneChangeSource(), dir, logging.NewNop())

	req := request(dir, video)
	result, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	raw, err := os.ReadFile(req.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if strings.Contains(string(raw), dir) {
		t.Fatalf("manifest should store paths relative to base dir: %s", raw)
	}

	loaded, err := extractor.ReadManifest(req.ManifestPath, dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if loaded.VideoPath != result.VideoPath || loaded.FPS != result.FPS || loaded.TotalFrames != result.TotalFrames {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, result)
	}
	if len(loaded.Slides) != len(result.Slides) {
		t.Fatalf("slide count mismatch")
	}
	for i := range loaded.Slides {
		got, want := loaded.Slides[i], result.Slides[i]
		if got.Path != want.Path || got.Filename != want.Filename || got.TimestampSeconds != want.TimestampSeconds {
			t.Fatalf("slide %d mismatch: %+v vs %+v", i, got, want)
		}
		if (got.Similarity == nil) != (want.Similarity == nil) {
			t.Fatalf("slide %d similarity presence mismatch", i)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:      "0:00:00",
		5.9:    "0:00:05",
		65:     "0:01:05",
		3725.4: "1:02:05",
		-3:     "0:00:00",
	}
	for input, want := range cases {
		if got := extractor.FormatTimestamp(input); got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", input, got, want)
		}
	}
}
