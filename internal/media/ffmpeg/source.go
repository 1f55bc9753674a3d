// Package ffmpeg decodes video files into raw RGB frames by piping ffmpeg's
// rawvideo output.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"vidslides/internal/media"
	"vidslides/internal/media/ffprobe"
	"vidslides/internal/similarity"
)

// Source opens videos with ffprobe for metadata and ffmpeg for frames.
type Source struct {
	FFmpegBinary  string
	FFprobeBinary string
}

// NewSource returns a Source using the given binaries, defaulting to PATH lookups.
func NewSource(ffmpegBinary, ffprobeBinary string) *Source {
	return &Source{FFmpegBinary: ffmpegBinary, FFprobeBinary: ffprobeBinary}
}

// Open inspects the file and starts the decoder.
func (s *Source) Open(ctx context.Context, path string) (media.FrameStream, error) {
	meta, err := ffprobe.Inspect(ctx, s.FFprobeBinary, path)
	if err != nil {
		return nil, err
	}
	stream, ok := meta.VideoStream()
	if !ok {
		return nil, fmt.Errorf("ffmpeg open %s: no video stream", path)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("ffmpeg open %s: invalid dimensions %dx%d", path, stream.Width, stream.Height)
	}

	info := media.VideoInfo{
		Width:       stream.Width,
		Height:      stream.Height,
		FPS:         stream.FrameRate(),
		TotalFrames: stream.FrameCount(),
	}
	if info.TotalFrames == 0 {
		if duration := meta.DurationSeconds(); duration > 0 {
			info.TotalFrames = int64(duration * info.EffectiveFPS())
		}
	}

	binary := strings.TrimSpace(s.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-nostdin",
		// Frames must match the coded size ffprobe reported; autorotation
		// would transpose portrait recordings.
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &rawStream{
		cmd:    cmd,
		reader: bufio.NewReaderSize(stdout, 1<<20),
		stderr: stderr,
		info:   info,
		frame:  similarity.NewFrame(info.Width, info.Height),
	}, nil
}

type rawStream struct {
	cmd    *exec.Cmd
	reader *bufio.Reader
	stderr *bytes.Buffer
	info   media.VideoInfo
	frame  similarity.Frame

	closeOnce sync.Once
	closeErr  error
	done      bool
}

func (r *rawStream) Info() media.VideoInfo {
	return r.info
}

func (r *rawStream) Next() (similarity.Frame, error) {
	if r.done {
		return similarity.Frame{}, io.EOF
	}
	_, err := io.ReadFull(r.reader, r.frame.Pix)
	switch {
	case err == nil:
		return r.frame, nil
	case errors.Is(err, io.EOF):
		r.done = true
		if waitErr := r.wait(); waitErr != nil {
			return similarity.Frame{}, waitErr
		}
		return similarity.Frame{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// A truncated trailing frame is dropped.
		r.done = true
		if waitErr := r.wait(); waitErr != nil {
			return similarity.Frame{}, waitErr
		}
		return similarity.Frame{}, io.EOF
	default:
		return similarity.Frame{}, fmt.Errorf("read ffmpeg frame: %w", err)
	}
}

func (r *rawStream) Close() error {
	if !r.done && r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	err := r.wait()
	if !r.done {
		// The process was killed on purpose.
		return nil
	}
	return err
}

func (r *rawStream) wait() error {
	r.closeOnce.Do(func() {
		if err := r.cmd.Wait(); err != nil {
			r.closeErr = fmt.Errorf("ffmpeg decode: %w: %s", err, strings.TrimSpace(r.stderr.String()))
		}
	})
	return r.closeErr
}
