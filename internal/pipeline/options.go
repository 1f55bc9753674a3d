package pipeline

import (
	"fmt"
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"vidslides/internal/config"
	"vidslides/internal/deck"
	"vidslides/internal/downloader"
	"vidslides/internal/extractor"
)

const hexAlphabet = "0123456789abcdef"

// jobIDPattern keeps job ids usable as a single directory name.
var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidJobID reports whether id can name a job directory under the
// workspace root.
func ValidJobID(id string) bool {
	return jobIDPattern.MatchString(id)
}

// Options are the per-run parameters.
type Options struct {
	// JobID names the job directory; generated when empty.
	JobID               string
	Title               string
	Subtitle            string
	SimilarityThreshold float64
	MinIntervalSeconds  float64
	SkipFirstSeconds    float64
	FillMode            bool
	ImageFormat         string
	ImageQuality        int
	ExtraDownloadArgs   []string
	// FilePattern names the downloaded file; defaults to the job id.
	FilePattern string
}

// DefaultOptions seeds Options from the extraction section of cfg.
func DefaultOptions(cfg *config.Config) Options {
	ext := config.Default().Extraction
	if cfg != nil {
		ext = cfg.Extraction
	}
	return Options{
		SimilarityThreshold: ext.SimilarityThreshold,
		MinIntervalSeconds:  ext.MinIntervalSeconds,
		SkipFirstSeconds:    ext.SkipFirstSeconds,
		FillMode:            ext.FillMode,
		ImageFormat:         ext.ImageFormat,
		ImageQuality:        ext.ImageQuality,
	}
}

// Result collects the artefacts of a successful run. Paths are absolute.
type Result struct {
	JobID    string
	JobDir   string
	URL      string
	Source   downloader.Source
	Title    string
	Subtitle string
	LogPath  string
	Download *downloader.Result
	Slides   *extractor.Result
	Deck     *deck.Result
}

// GenerateJobID returns an id of the form YYYYmmdd-HHMMSS-<6 hex>.
func GenerateJobID(now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(hexAlphabet, 6)
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return now.UTC().Format("20060102-150405") + "-" + suffix, nil
}
