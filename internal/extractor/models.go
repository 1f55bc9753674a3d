package extractor

import (
	"fmt"
	"time"
)

// Slide is one retained frame.
type Slide struct {
	Index            int      `json:"index"`
	Filename         string   `json:"filename"`
	Path             string   `json:"path"`
	TimestampSeconds float64  `json:"timestamp_seconds"`
	Timestamp        string   `json:"timestamp"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	Similarity       *float64 `json:"similarity"`
}

// Result is the outcome of one extraction. Slide paths are absolute.
type Result struct {
	VideoPath       string
	Slides          []Slide
	FPS             float64
	TotalFrames     int64
	DurationSeconds float64
	ManifestPath    string
}

// Request carries the inputs of one extraction.
type Request struct {
	VideoPath string
	// OutputDir receives the slide images.
	OutputDir string
	// ManifestPath is optional; when empty no manifest is written.
	ManifestPath        string
	SimilarityThreshold float64
	MinIntervalSeconds  float64
	SkipFirstSeconds    float64
	ImageFormat         string
	ImageQuality        int
}

// FormatTimestamp renders seconds as H:MM:SS, truncating fractions.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(int64(seconds)) * time.Second
	hours := int64(d / time.Hour)
	minutes := int64(d%time.Hour) / int64(time.Minute)
	secs := int64(d%time.Minute) / int64(time.Second)
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
}

// SlideFilename is the image name for a 1-based slide index.
func SlideFilename(index int, format string) string {
	return fmt.Sprintf("slide_%04d.%s", index, format)
}
