package stream

// EMUPerPoint is the fixed conversion between points and the EMU unit the
// Slides API expects for sizes and positions.
const EMUPerPoint = 12700

// Pt converts points to EMU.
func Pt(points float64) float64 {
	return points * EMUPerPoint
}

// FromEMU converts EMU back to points.
func FromEMU(emu float64) float64 {
	return emu / EMUPerPoint
}

const (
	// charWidthRatio approximates an Arial glyph width as a fraction of the font size.
	charWidthRatio = 0.48
	// textBoxPaddingX is the text box internal left margin (0.1in).
	textBoxPaddingX = 7.2
)

// CharX returns the approximate x position, in points, of the character at
// index in a text box at boxX using fontSize.
func CharX(boxX, fontSize float64, index int) float64 {
	return boxX + textBoxPaddingX + float64(index)*fontSize*charWidthRatio
}
