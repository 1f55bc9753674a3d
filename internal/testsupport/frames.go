package testsupport

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"vidslides/internal/media"
	"vidslides/internal/similarity"
)

// Scene is a run of identical frames.
type Scene struct {
	Frames int
	Frame  similarity.Frame
}

// SceneSource is an in-memory media.FrameSource that plays back scenes in
// order. It ignores the requested path.
type SceneSource struct {
	FPS float64
	// TotalFrames overrides the reported frame count; zero reports the sum of
	// the scenes.
	TotalFrames int64
	Scenes      []Scene
	OpenErr     error
	// FailAt makes Next return an error at the given frame index when > 0.
	FailAt int64

	mu     sync.Mutex
	opened []string
}

// Open implements media.FrameSource.
func (s *SceneSource) Open(_ context.Context, path string) (media.FrameStream, error) {
	s.mu.Lock()
	s.opened = append(s.opened, path)
	s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	var total int64
	for _, scene := range s.Scenes {
		total += int64(scene.Frames)
	}
	reported := total
	if s.TotalFrames != 0 {
		reported = s.TotalFrames
	}
	first := similarity.NewFrame(0, 0)
	if len(s.Scenes) > 0 {
		first = s.Scenes[0].Frame
	}
	return &sceneStream{
		source: s,
		info: media.VideoInfo{
			Width:       first.Width,
			Height:      first.Height,
			FPS:         s.FPS,
			TotalFrames: reported,
		},
	}, nil
}

// Opened lists the paths passed to Open.
func (s *SceneSource) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

type sceneStream struct {
	source *SceneSource
	info   media.VideoInfo
	scene  int
	offset int
	index  int64
}

func (s *sceneStream) Info() media.VideoInfo { return s.info }

func (s *sceneStream) Next() (similarity.Frame, error) {
	if s.source.FailAt > 0 && s.index == s.source.FailAt {
		return similarity.Frame{}, errors.New("decoder failure")
	}
	for s.scene < len(s.source.Scenes) && s.offset >= s.source.Scenes[s.scene].Frames {
		s.scene++
		s.offset = 0
	}
	if s.scene >= len(s.source.Scenes) {
		return similarity.Frame{}, io.EOF
	}
	s.offset++
	s.index++
	return s.source.Scenes[s.scene].Frame, nil
}

func (s *sceneStream) Close() error { return nil }

// SplitFrame returns a 320x180 frame that is half white. Vertical splits
// colour the left half; horizontal splits colour the top half.
func SplitFrame(vertical bool) similarity.Frame {
	frame := similarity.NewFrame(320, 180)
	if vertical {
		frame.Fill(image.Rect(0, 0, 160, 180), 255, 255, 255)
	} else {
		frame.Fill(image.Rect(0, 0, 320, 90), 255, 255, 255)
	}
	return frame
}

// SceneChangeSource models a 10 second, 10 fps video whose content changes
// once at the 5 second mark.
func SceneChangeSource() *SceneSource {
	return &SceneSource{
		FPS: 10,
		Scenes: []Scene{
			{Frames: 50, Frame: SplitFrame(true)},
			{Frames: 50, Frame: SplitFrame(false)},
		},
	}
}
