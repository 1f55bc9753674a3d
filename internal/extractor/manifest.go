package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vidslides/internal/config"
)

// Manifest is the persisted form of a Result.
type Manifest struct {
	VideoPath       string  `json:"video_path"`
	FPS             float64 `json:"fps"`
	TotalFrames     int64   `json:"total_frames"`
	DurationSeconds float64 `json:"duration_seconds"`
	Slides          []Slide `json:"slides"`
}

// WriteManifest stores result at path with every file path made relative to
// baseDir. The file is replaced atomically.
func WriteManifest(path string, result *Result, baseDir string) error {
	if result == nil {
		return fmt.Errorf("write manifest: nil result")
	}
	manifest := Manifest{
		VideoPath:       config.RelativeTo(baseDir, result.VideoPath),
		FPS:             result.FPS,
		TotalFrames:     result.TotalFrames,
		DurationSeconds: result.DurationSeconds,
		Slides:          make([]Slide, len(result.Slides)),
	}
	for i, slide := range result.Slides {
		slide.Path = config.RelativeTo(baseDir, slide.Path)
		manifest.Slides[i] = slide
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(manifest); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest and resolves its relative paths against
// baseDir, reproducing the Result that was written.
func ReadManifest(path string, baseDir string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	result := &Result{
		VideoPath:       resolve(baseDir, manifest.VideoPath),
		FPS:             manifest.FPS,
		TotalFrames:     manifest.TotalFrames,
		DurationSeconds: manifest.DurationSeconds,
		ManifestPath:    path,
		Slides:          make([]Slide, len(manifest.Slides)),
	}
	for i, slide := range manifest.Slides {
		slide.Path = resolve(baseDir, slide.Path)
		result.Slides[i] = slide
	}
	return result, nil
}

func resolve(baseDir, stored string) string {
	if stored == "" || baseDir == "" || filepath.IsAbs(stored) {
		return stored
	}
	return filepath.Join(baseDir, filepath.FromSlash(stored))
}
