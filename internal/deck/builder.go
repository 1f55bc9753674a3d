package deck

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vidslides/internal/extractor"
	"vidslides/internal/logging"
	"vidslides/internal/services"
)

const stageName = "build-deck"

// ErrNoSlides rejects an empty slide list.
var ErrNoSlides = errors.New("No slides to add into PPT.")

// Request describes one deck.
type Request struct {
	Slides     []extractor.Slide
	OutputPath string
	// Title adds a leading title slide when non-empty.
	Title    string
	Subtitle string
	// FillMode covers the margin box; false letterboxes.
	FillMode bool
}

// Result describes a written deck. SlideCount excludes the title slide.
type Result struct {
	DeckPath   string
	SlideCount int
}

// Builder writes decks.
type Builder struct {
	margin int64
	now    func() time.Time
	logger *slog.Logger
}

// NewBuilder returns a Builder using the default 0.3in margin.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		margin: DefaultMargin,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "deck"),
	}
}

// SetLogger swaps the logger, typically for a per-job logger.
func (b *Builder) SetLogger(logger *slog.Logger) {
	b.logger = logging.NewComponentLogger(logger, "deck")
}

// Build writes the deck to a temporary file beside OutputPath and renames it
// into place, so an existing deck with the same name is replaced whole.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if len(req.Slides) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "", "", ErrNoSlides)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "", "output path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "mkdir", filepath.Dir(req.OutputPath), err)
	}

	data, err := b.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(req.OutputPath), ".deck-*.pptx")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "create", req.OutputPath, err)
	}
	tmpPath := tmp.Name()
	writeErr := b.writePackage(ctx, tmp, data, req)
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(writeErr, context.Canceled) || errors.Is(writeErr, context.DeadlineExceeded) {
			return nil, writeErr
		}
		return nil, services.Wrap(services.ErrTransient, stageName, "write", req.OutputPath, writeErr)
	}
	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, services.Wrap(services.ErrTransient, stageName, "rename", req.OutputPath, err)
	}

	b.logger.Info("deck written",
		logging.String(logging.FieldEventType, "deck_written"),
		logging.String("deck_path", req.OutputPath),
		logging.Int("slide_count", len(req.Slides)),
		logging.Bool("title_slide", req.Title != ""),
		logging.Bool("fill_mode", req.FillMode),
	)
	return &Result{DeckPath: req.OutputPath, SlideCount: len(req.Slides)}, nil
}

func (b *Builder) plan(ctx context.Context, req Request) (packageData, error) {
	data := packageData{
		Title:       req.Title,
		Created:     b.now().UTC().Format(time.RFC3339),
		SlideWidth:  SlideWidth,
		SlideHeight: SlideHeight,
	}
	extensions := map[string]struct{}{}
	number := 0
	if req.Title != "" {
		number++
		data.Slides = append(data.Slides, slidePart{Number: number, IsTitle: true, Title: req.Title, Subtitle: req.Subtitle})
	}
	for i, slide := range req.Slides {
		if err := ctx.Err(); err != nil {
			return packageData{}, err
		}
		width, height, format, err := imageSize(slide.Path)
		if err != nil {
			return packageData{}, services.Wrap(services.ErrValidation, stageName, "read image", slide.Path, err)
		}
		ext := mediaExtension(slide.Path, format)
		extensions[ext] = struct{}{}
		number++
		data.Slides = append(data.Slides, slidePart{
			Number:    number,
			Media:     fmt.Sprintf("image%d.%s", i+1, ext),
			MediaName: filepath.Base(slide.Path),
			Place:     Place(width, height, b.margin, req.FillMode),
		})
	}
	for ext := range extensions {
		data.Extensions = append(data.Extensions, ext)
	}
	sort.Strings(data.Extensions)
	return data, nil
}

func (b *Builder) writePackage(ctx context.Context, w io.Writer, data packageData, req Request) error {
	zw := zip.NewWriter(w)

	titles := titleShapes("", "")
	static := []struct {
		name     string
		template string
		data     any
	}{
		{"[Content_Types].xml", "content_types", data},
		{"_rels/.rels", "root_rels", data},
		{"docProps/core.xml", "core", data},
		{"docProps/app.xml", "app", data},
		{"ppt/presentation.xml", "presentation", data},
		{"ppt/_rels/presentation.xml.rels", "presentation_rels", data},
		{"ppt/slideMasters/slideMaster1.xml", "master", data},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", "master_rels", data},
		{"ppt/slideLayouts/slideLayout1.xml", "layout_title", titles},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", "layout_rels", data},
		{"ppt/slideLayouts/slideLayout2.xml", "layout_blank", data},
		{"ppt/slideLayouts/_rels/slideLayout2.xml.rels", "layout_rels", data},
	}
	for _, part := range static {
		body, err := render(part.template, part.data)
		if err != nil {
			return fmt.Errorf("render %s: %w", part.name, err)
		}
		if err := writeEntry(zw, part.name, body); err != nil {
			return err
		}
	}
	if err := writeEntry(zw, "ppt/theme/theme1.xml", []byte(themeXML)); err != nil {
		return err
	}

	mediaIndex := 0
	for _, slide := range data.Slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			body []byte
			err  error
		)
		if slide.IsTitle {
			body, err = render("slide_title", titleShapes(slide.Title, slide.Subtitle))
		} else {
			body, err = render("slide_picture", slide)
		}
		if err != nil {
			return fmt.Errorf("render slide %d: %w", slide.Number, err)
		}
		if err := writeEntry(zw, fmt.Sprintf("ppt/slides/slide%d.xml", slide.Number), body); err != nil {
			return err
		}
		rels, err := render("slide_rels", slide)
		if err != nil {
			return fmt.Errorf("render slide %d rels: %w", slide.Number, err)
		}
		if err := writeEntry(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slide.Number), rels); err != nil {
			return err
		}
		if slide.IsTitle {
			continue
		}
		if err := copyMedia(zw, "ppt/media/"+slide.Media, req.Slides[mediaIndex].Path); err != nil {
			return err
		}
		mediaIndex++
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name string, body []byte) error {
	writer, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// copyMedia stores images without recompression; they are already encoded.
func copyMedia(zw *zip.Writer, name, source string) error {
	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer file.Close()
	writer, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("copy %s: %w", source, err)
	}
	return nil
}

func imageSize(path string) (int, int, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, "", err
	}
	defer file.Close()
	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, format, nil
}

func mediaExtension(path, format string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpg", "jpeg", "png":
		return ext
	}
	if format == "png" {
		return "png"
	}
	return "jpeg"
}
