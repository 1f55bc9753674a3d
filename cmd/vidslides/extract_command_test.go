package main

import (
	"os"
	"path/filepath"
	"testing"

	"vidslides/internal/extractor"
	"vidslides/internal/media"
	"vidslides/internal/testsupport"
)

func TestExtractLocalVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	source := testsupport.SceneChangeSource()
	previous := newFrameSource
	newFrameSource = func(string, string) media.FrameSource { return source }
	t.Cleanup(func() { newFrameSource = previous })

	video := filepath.Join(testsupport.BaseDir(env.cfg), "talk.mp4")
	testsupport.WriteFile(t, video, 128)
	outDir := filepath.Join(testsupport.BaseDir(env.cfg), "out")

	out, _, err := env.run(t, "extract", video, "-o", outDir, "--title", "Talk", "--min-interval", "1")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	requireContains(t, out, "Extracted 2 slides from talk.mp4 (0:00:10)")
	requireContains(t, out, "Deck: "+filepath.Join(outDir, "Talk.pptx"))

	if _, err := os.Stat(filepath.Join(outDir, "Talk.pptx")); err != nil {
		t.Fatalf("deck missing: %v", err)
	}
	result, err := extractor.ReadManifest(filepath.Join(outDir, "slides.json"), "")
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(result.Slides) != 2 {
		t.Fatalf("expected 2 slides in manifest, got %d", len(result.Slides))
	}
	if got := source.Opened(); len(got) != 1 || got[0] != video {
		t.Fatalf("unexpected opened paths %v", got)
	}
}

func TestExtractMissingVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	previous := newFrameSource
	newFrameSource = func(string, string) media.FrameSource { return testsupport.SceneChangeSource() }
	t.Cleanup(func() { newFrameSource = previous })

	_, _, err := env.run(t, "extract", filepath.Join(testsupport.BaseDir(env.cfg), "nope.mp4"), "--no-deck")
	if err == nil {
		t.Fatal("expected error for missing video")
	}
	requireContains(t, err.Error(), "video file not found")
}
