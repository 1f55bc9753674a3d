// Package deck assembles slide images into a PowerPoint (.pptx) file.
//
// The presentation is 16:9 (10in x 5.625in). An optional title slide comes
// first, followed by one picture slide per image. Pictures are centred and
// scaled either to cover the area inside the margin (fill mode) or to fit
// within it (letterbox). The package writes the Office Open XML parts
// directly; the output opens in PowerPoint, Keynote and LibreOffice.
package deck
