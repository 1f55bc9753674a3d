// Package extractor walks a video once and keeps the frames that look like new
// slides.
//
// Extract applies the skip-intro offset and the minimum-interval gate (both in
// frames), asks a similarity.Tracker whether each remaining frame is novel,
// writes novel frames as slide_NNNN images and optionally persists a JSON
// manifest. Manifest paths are relative to the deployment root so the job
// directory can move between mounts.
//
// The interval gate counts frames, so it is exact for constant frame rate
// video and approximate for variable frame rate sources.
package extractor
