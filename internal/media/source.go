package media

import (
	"context"

	"vidslides/internal/similarity"
)

// DefaultFPS is assumed when a container does not report a usable frame rate.
const DefaultFPS = 25.0

// VideoInfo describes a decoded video stream.
type VideoInfo struct {
	Width       int
	Height      int
	FPS         float64
	TotalFrames int64
}

// EffectiveFPS returns FPS or DefaultFPS when FPS is unknown.
func (i VideoInfo) EffectiveFPS() float64 {
	if i.FPS > 0 {
		return i.FPS
	}
	return DefaultFPS
}

// FrameStream yields frames in presentation order. Next returns io.EOF once
// the stream is exhausted. The returned frame may share its buffer with the
// next call; callers that keep a frame must Clone it.
type FrameStream interface {
	Info() VideoInfo
	Next() (similarity.Frame, error)
	Close() error
}

// FrameSource opens a video file for sequential decoding.
type FrameSource interface {
	Open(ctx context.Context, path string) (FrameStream, error)
}
