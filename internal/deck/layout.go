package deck

// EMU is the Office Open XML length unit; one inch is 914400 EMU.
const (
	emuPerInch  = 914400
	SlideWidth  = 10 * emuPerInch
	SlideHeight = 5625 * emuPerInch / 1000
	// DefaultMargin is 0.3in.
	DefaultMargin = 3 * emuPerInch / 10
	minAvailable  = emuPerInch / 100
)

// Placement is a picture rectangle in EMU. Offsets may be negative when a
// picture overflows the slide in fill mode.
type Placement struct {
	Left   int64
	Top    int64
	Width  int64
	Height int64
}

// Place centres an image of the given pixel size on the slide. Fill mode
// scales by the larger of the two axis ratios so the margin box is covered;
// otherwise the smaller ratio keeps the whole picture visible.
func Place(imgWidth, imgHeight int, margin int64, fill bool) Placement {
	if imgWidth <= 0 || imgHeight <= 0 {
		return Placement{Width: SlideWidth, Height: SlideHeight}
	}
	if margin < 0 {
		margin = 0
	}
	availableWidth := max(int64(SlideWidth)-2*margin, minAvailable)
	availableHeight := max(int64(SlideHeight)-2*margin, minAvailable)

	widthRatio := float64(availableWidth) / float64(imgWidth)
	heightRatio := float64(availableHeight) / float64(imgHeight)
	scale := min(widthRatio, heightRatio)
	if fill {
		scale = max(widthRatio, heightRatio)
	}

	width := int64(float64(imgWidth) * scale)
	height := int64(float64(imgHeight) * scale)
	return Placement{
		Left:   (SlideWidth - width) / 2,
		Top:    (SlideHeight - height) / 2,
		Width:  width,
		Height: height,
	}
}
