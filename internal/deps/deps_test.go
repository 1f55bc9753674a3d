package deps

import (
	"os"
	"path/filepath"
	"testing"

	"vidslides/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be reported, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestRequirementsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.FFmpegBinary = "my-ffmpeg"
	reqs := Requirements(&cfg)
	if len(reqs) != 4 {
		t.Fatalf("expected 4 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "my-ffmpeg" || reqs[0].Optional {
		t.Fatalf("unexpected ffmpeg requirement %#v", reqs[0])
	}
	if !reqs[2].Optional || !reqs[3].Optional {
		t.Fatal("downloaders should be optional")
	}
	if Requirements(nil) != nil {
		t.Fatal("expected nil requirements for nil config")
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "FFmpeg", Available: false},
		{Name: "BBDown", Available: false, Optional: true},
		{Name: "FFprobe", Available: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "FFmpeg" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}
