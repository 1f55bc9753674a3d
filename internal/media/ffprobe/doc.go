// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns the parsed Result. Helpers on Result
// pick the primary video stream and turn its rational frame rates, frame
// counts and durations into numbers the slide extractor can use.
package ffprobe
