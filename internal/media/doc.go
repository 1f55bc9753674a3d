// Package media defines the frame-source contract shared by the slide
// extractor and its decoders.
//
// Subpackages:
//   - ffprobe: typed wrapper around ffprobe JSON output
//   - ffmpeg: FrameSource that decodes raw RGB frames through an ffmpeg pipe
package media
