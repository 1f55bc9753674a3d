package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidslides/internal/api"
	"vidslides/internal/extractor"
)

const titleColumnWidth = 40

func buildJobRows(items []api.Job) [][]string {
	rows := make([][]string, 0, len(items))
	for _, job := range items {
		rows = append(rows, []string{
			job.JobID,
			job.Status,
			truncateDisplay(displayTitle(job), titleColumnWidth),
			job.Source,
			slideCount(job),
			shortTime(job.CreatedAt),
		})
	}
	return rows
}

func buildLibraryRows(items []api.Job) [][]string {
	rows := make([][]string, 0, len(items))
	for _, job := range items {
		rows = append(rows, []string{
			job.JobID,
			truncateDisplay(displayTitle(job), titleColumnWidth),
			slideCount(job),
			job.PPTPath,
			shortTime(job.CompletedAt),
		})
	}
	return rows
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	caser := cases.Title(language.English)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{caser.String(key), strconv.Itoa(stats[key])})
	}
	return rows
}

func renderJobDetails(job *api.Job, colorize bool) string {
	status := renderStatusLine("Status", jobStatusKind(job.Status), job.Status, colorize)
	pairs := [][2]string{
		{"Job ID", job.JobID},
		{"URL", job.URL},
		{"Source", job.Source},
		{"Title", job.Title},
		{"Subtitle", job.Subtitle},
		{"Error", job.ErrorMessage},
		{"Threshold", strconv.FormatFloat(job.SimilarityThreshold, 'f', -1, 64)},
		{"Min interval", formatSeconds(job.MinIntervalSeconds)},
		{"Skip", formatSeconds(job.SkipFirstSeconds)},
		{"Image", fmt.Sprintf("%s q%d", job.ImageFormat, job.ImageQuality)},
		{"Fill mode", yesNo(job.FillMode)},
		{"Job dir", job.JobDir},
		{"Video", job.VideoPath},
		{"Slides", job.ScreenshotsDir},
		{"Manifest", job.SlidesJSONPath},
		{"Deck", job.PPTPath},
		{"Slide count", optionalCount(job.SlideCount)},
		{"Duration", optionalDuration(job.VideoDurationSeconds)},
		{"Command", strings.Join(job.Command, " ")},
		{"Created", job.CreatedAt},
		{"Started", job.StartedAt},
		{"Completed", job.CompletedAt},
	}
	return strings.TrimLeft(status, " ") + "\n" + renderDetails(pairs)
}

// describeServiceError adds the conflicting job to duplicate errors so the
// user can find it.
func describeServiceError(err error) error {
	svcErr, ok := api.AsServiceError(err)
	if !ok {
		return err
	}
	switch svcErr.Code {
	case api.CodeDuplicateJobID, api.CodeDuplicateURL:
		if svcErr.JobID != "" {
			return fmt.Errorf("%s: %s (%s)", svcErr.Message, svcErr.JobID, svcErr.Status)
		}
	}
	return svcErr
}

func displayTitle(job api.Job) string {
	if strings.TrimSpace(job.Title) != "" {
		return job.Title
	}
	return job.URL
}

func slideCount(job api.Job) string {
	if job.SlideCount == nil {
		return "-"
	}
	return strconv.Itoa(*job.SlideCount)
}

func optionalCount(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func optionalDuration(value *float64) string {
	if value == nil {
		return ""
	}
	return extractor.FormatTimestamp(*value)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "s"
}

// shortTime trims the fractional seconds from a stored timestamp.
func shortTime(value string) string {
	if value == "" {
		return "-"
	}
	if idx := strings.IndexByte(value, '.'); idx > 0 {
		return value[:idx]
	}
	return value
}

func truncateDisplay(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
