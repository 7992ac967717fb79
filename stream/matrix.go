package stream

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/slidetx/stream/glyph"
	"github.com/matt-g-everett/slidetx/util"
)

// Rotating per-drop tables, indexed by drop number modulo their length.
var (
	rainStartOffsets = [...]float64{50, 100, 75} // points above the text a drop starts
	rainFadeInSteps  = [...]int{1, 3, 2}         // frames for a falling drop to reach full flash
	rainFadeSteps    = [...]int{3, 5, 4}         // frames for a landed drop to fade out
	textFadeSteps    = [...]int{4, 7, 5}         // frames for a landed character to fade in
)

const (
	rainYStep      = 25.0 // points a drop falls per frame
	rainTailFrames = 5    // frames for the text to settle after the last deposit
	rainDropSize   = 30.0 // rain drop text box side, points
)

// DropState is the lifecycle stage of a rain drop.
type DropState int

const (
	DropSpawned DropState = iota
	DropDepositing
	DropSettling
	DropRemoved
)

func (s DropState) String() string {
	switch s {
	case DropSpawned:
		return "spawned"
	case DropDepositing:
		return "depositing"
	case DropSettling:
		return "settling"
	case DropRemoved:
		return "removed"
	}
	return "unknown"
}

type rainDrop struct {
	id           string
	charIndex    int
	charWidth    int
	x            float64
	y            float64
	startOffset  float64
	depositFrame int
	fadeInSteps  int
	fadeSteps    int
	textSteps    int
	state        DropState
}

func newRainDrop(elementID string, n, charIndex, charWidth int, el TextElement) *rainDrop {
	d := new(rainDrop)
	d.id = rainDropID(elementID, n)
	d.charIndex = charIndex
	d.charWidth = charWidth
	d.startOffset = rainStartOffsets[n%len(rainStartOffsets)]
	d.depositFrame = depositFrame(d.startOffset)
	d.fadeInSteps = rainFadeInSteps[n%len(rainFadeInSteps)]
	d.fadeSteps = rainFadeSteps[n%len(rainFadeSteps)]
	d.textSteps = textFadeSteps[n%len(textFadeSteps)]
	d.x = CharX(el.X, el.Size, charIndex)
	d.y = el.Y - d.startOffset
	d.state = DropSpawned
	return d
}

func rainDropID(elementID string, n int) string {
	return elementID + "_rain_" + strconv.Itoa(n)
}

func depositFrame(offset float64) int {
	return int(math.Ceil(offset/rainYStep)) - 1
}

// deposited reports whether the drop has reached its character by frame.
func (d *rainDrop) deposited(frame int) bool {
	return float64(frame+1)*rainYStep >= d.startOffset
}

// MatrixReveal is an Animation where characters fall into place as rain
// drops, flash, and fade to their final colour.
type MatrixReveal struct {
	pageID      string
	elementID   string
	el          TextElement
	final       colorful.Color
	text        []uint16
	drops       []*rainDrop
	totalFrames int
	glyphs      *glyph.Generator
	fades       *util.Memoizer
}

// NewMatrixReveal creates the reveal for el on pageID. The element's shape
// is created by Setup under elementID. A nil ease means linear fades.
func NewMatrixReveal(pageID, elementID string, el TextElement, final colorful.Color,
	glyphs *glyph.Generator, ease util.EaseFunc) *MatrixReveal {

	if ease == nil {
		ease, _ = util.Easing("")
	}

	m := new(MatrixReveal)
	m.pageID = pageID
	m.elementID = elementID
	m.el = el
	m.final = final
	m.glyphs = glyphs
	m.fades = util.NewMemoizer(ease)

	// Character indices are UTF-16 offsets, the unit the backend counts in.
	m.text = utf16.Encode([]rune(el.Text))
	offset := 0
	for _, r := range el.Text {
		width := utf16.RuneLen(r)
		if width < 0 {
			width = 1
		}
		if r != ' ' {
			m.drops = append(m.drops, newRainDrop(elementID, len(m.drops), offset, width, el))
		}
		offset += width
	}

	lastDeposit := depositFrame(rainStartOffsets[0])
	if len(m.drops) > 0 {
		lastDeposit = m.drops[0].depositFrame
		for _, d := range m.drops[1:] {
			if d.depositFrame > lastDeposit {
				lastDeposit = d.depositFrame
			}
		}
	}
	m.totalFrames = lastDeposit + 1 + rainTailFrames + 1

	return m
}

// TotalFrames is the length of the frame sequence implied by the drops'
// offsets. FrameCount is zero instead when there is nothing to animate.
func (m *MatrixReveal) TotalFrames() int {
	return m.totalFrames
}

// ElementID implements Animation.
func (m *MatrixReveal) ElementID() string {
	return m.elementID
}

// FrameCount implements Animation.
func (m *MatrixReveal) FrameCount() int {
	if len(m.drops) == 0 {
		return 0
	}
	return m.TotalFrames()
}

// Drops returns the number of rain drops.
func (m *MatrixReveal) Drops() int {
	return len(m.drops)
}

// DropState returns the lifecycle state of drop n after the last calculated
// frame.
func (m *MatrixReveal) DropState(n int) DropState {
	return m.drops[n].state
}

// frameText shows the characters deposited by frame and blanks the rest with
// spaces, keeping the UTF-16 length.
func (m *MatrixReveal) frameText(frame int) string {
	var b strings.Builder
	di := 0
	for _, r := range m.el.Text {
		if r == ' ' {
			b.WriteRune(r)
			continue
		}
		d := m.drops[di]
		di++
		if frame != SetupFrame && d.deposited(frame) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(strings.Repeat(" ", d.charWidth))
	}
	return b.String()
}

// Setup implements Animation. It creates the element with blank black text
// and one black glyph box above every character.
func (m *MatrixReveal) Setup() *Frame {
	f := NewFrame(m.pageID, m.elementID, SetupFrame, m.FrameCount())
	f.Add(BuildTextBoxWithText(m.pageID, m.elementID, m.el, Black, m.frameText(SetupFrame))...)
	for _, d := range m.drops {
		d.state = DropSpawned
		f.Add(
			CreateTextBox(m.pageID, d.id, d.x, m.el.Y-d.startOffset, rainDropSize, rainDropSize),
			InsertText(d.id, m.glyphs.Glyph()),
			UpdateTextStyle(d.id, m.el.Size, true, Black, nil),
		)
	}
	return f
}

// CalculateFrame implements Animation.
func (m *MatrixReveal) CalculateFrame(n int) *Frame {
	if n < 0 || n >= m.totalFrames {
		panic("stream: matrix frame " + strconv.Itoa(n) + " out of range")
	}

	final := n == m.totalFrames-1
	f := NewFrame(m.pageID, m.elementID, n, m.totalFrames)

	// Main text is re-sent every frame, its length never changes.
	text := m.el.Text
	if !final {
		text = m.frameText(n)
	}
	f.Add(
		DeleteAllText(m.elementID),
		InsertText(m.elementID, text),
		UpdateTextStyle(m.elementID, m.el.Size, m.el.Bold, Black, FixedRange(0, len(m.text))),
	)
	target := FlashGreen
	if final {
		target = m.final
	}
	for _, d := range m.drops {
		if !d.deposited(n) {
			continue
		}
		progress := m.fades.Progress(n-d.depositFrame, d.textSteps)
		f.Add(UpdateTextStyle(m.elementID, m.el.Size, m.el.Bold, FadeIn(target, progress),
			FixedRange(d.charIndex, d.charIndex+d.charWidth)))
	}

	if final {
		for _, d := range m.drops {
			d.state = DropRemoved
			f.Add(DeleteObject(d.id))
		}
		return f
	}

	for _, d := range m.drops {
		var c colorful.Color
		switch {
		case !d.deposited(n):
			d.state = DropDepositing
			c = FadeIn(FlashGreen, m.fades.Progress(n+1, d.fadeInSteps))
		case n == d.depositFrame:
			d.state = DropDepositing
			c = FlashGreen
		default:
			d.state = DropSettling
			c = FadeOut(MatrixGreen, m.fades.Progress(n-d.depositFrame, d.fadeSteps))
		}
		d.y = m.el.Y - d.startOffset + float64(n+1)*rainYStep
		f.Add(
			DeleteAllText(d.id),
			InsertText(d.id, m.glyphs.Glyph()),
			UpdateTextStyle(d.id, m.el.Size, true, c, nil),
			MoveTo(d.id, d.x, d.y),
		)
	}
	return f
}
