package downloader

import (
	"regexp"
	"strings"
)

// Source identifies the hosting platform of a video URL.
type Source string

const (
	SourceBilibili Source = "bilibili"
	SourceYouTube  Source = "youtube"
	SourceUnknown  Source = "unknown"
)

var sourcePatterns = []struct {
	source   Source
	patterns []*regexp.Regexp
}{
	{
		source: SourceBilibili,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`bilibili\.com`),
			regexp.MustCompile(`b23\.tv`),
			regexp.MustCompile(`acg\.tv`),
		},
	},
	{
		source: SourceYouTube,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`youtube\.com`),
			regexp.MustCompile(`youtu\.be`),
			regexp.MustCompile(`youtube-nocookie\.com`),
		},
	},
}

// Classify reports the source platform of url. Matching is case-insensitive
// and checks Bilibili patterns first.
func Classify(url string) Source {
	lower := strings.ToLower(url)
	for _, entry := range sourcePatterns {
		for _, pattern := range entry.patterns {
			if pattern.MatchString(lower) {
				return entry.source
			}
		}
	}
	return SourceUnknown
}
