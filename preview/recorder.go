package preview

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"google.golang.org/api/slides/v1"

	"github.com/matt-g-everett/slidetx/stream"
)

// lineHeight is the line spacing used for multi-line text, relative to font size.
const lineHeight = 1.2

var (
	fontsOnce     sync.Once
	regular, bold *truetype.Font
	errFonts      error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, errFonts = truetype.Parse(goregular.TTF); errFonts != nil {
			return
		}
		bold, errFonts = truetype.Parse(gobold.TTF)
	})
	return errFonts
}

type faceKey struct {
	size float64
	bold bool
}

// Renderer draws slides into images.
type Renderer struct {
	width int
	faces map[faceKey]font.Face
}

// NewRenderer creates a Renderer producing images width pixels wide.
func NewRenderer(width int) (*Renderer, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	r := new(Renderer)
	r.width = width
	r.faces = make(map[faceKey]font.Face)
	return r, nil
}

func (r *Renderer) face(size float64, isBold bool) font.Face {
	k := faceKey{size, isBold}
	if f, ok := r.faces[k]; ok {
		return f
	}
	ttf := regular
	if isBold {
		ttf = bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[k] = f
	return f
}

// Render draws page at the renderer's width, keeping the presentation's
// aspect ratio.
func (r *Renderer) Render(p *slides.Presentation, page *slides.Page) image.Image {
	pw, ph := pageSize(p)
	scale := float64(r.width) / pw
	dc := gg.NewContext(r.width, int(ph*scale+0.5))
	dc.SetColor(background(page))
	dc.Clear()

	for _, el := range page.PageElements {
		r.drawText(dc, el, scale)
	}
	return dc.Image()
}

// drawText lays out the runs of el left to right from its top left corner.
// Glyphs are not transformed by the context matrix so everything is scaled
// up front.
func (r *Renderer) drawText(dc *gg.Context, el *slides.PageElement, scale float64) {
	x0, y := position(el)
	x0, y = x0*scale, y*scale
	x := x0
	first := true
	for _, rn := range runs(el) {
		size := rn.size * scale
		dc.SetFontFace(r.face(size, rn.bold))
		dc.SetColor(rn.colour)
		if first {
			y += size
			first = false
		}
		for i, line := range strings.Split(rn.text, "\n") {
			if i > 0 {
				x = x0
				y += size * lineHeight
			}
			if line == "" {
				continue
			}
			dc.DrawString(line, x, y)
			w, _ := dc.MeasureString(line)
			x += w
		}
	}
}

// Recorder saves a PNG of the animated slide after every acknowledged frame.
type Recorder struct {
	getter   Getter
	renderer *Renderer
	dir      string
	log      *zap.Logger

	mu     sync.Mutex
	frames int
}

// NewRecorder creates an instance of a Recorder writing into a directory
// under root named after title.
func NewRecorder(getter Getter, root, title string, width int, log *zap.Logger) (*Recorder, error) {
	renderer, err := NewRenderer(width)
	if err != nil {
		return nil, err
	}
	name := slug.Make(title)
	if name == "" {
		name = "presentation"
	}
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create preview directory: %w", err)
	}

	r := new(Recorder)
	r.getter = getter
	r.renderer = renderer
	r.dir = dir
	r.log = log
	return r, nil
}

// Dir is where frames are written.
func (r *Recorder) Dir() string {
	return r.dir
}

// Frames returns the number of images written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// FrameName is the file name of frame index of element.
func FrameName(elementID string, index int) string {
	return fmt.Sprintf("%s-%03d.png", slug.Make(elementID), index+1)
}

// FrameSent implements stream.Observer.
func (r *Recorder) FrameSent(ctx context.Context, presentationID string, f *stream.Frame) error {
	p, page, err := fetchPage(ctx, r.getter, presentationID, f.PageID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fname := filepath.Join(r.dir, FrameName(f.ElementID, f.Index))
	if err := gg.SavePNG(fname, r.renderer.Render(p, page)); err != nil {
		return fmt.Errorf("unable to save frame: %w", err)
	}
	r.frames++
	r.log.Debug("Frame recorded", zap.String("file", fname))
	return nil
}

// SequenceDone implements stream.Observer.
func (r *Recorder) SequenceDone(_ context.Context, _, elementID string, frames int, err error) {
	if err != nil {
		r.log.Warn("Recording incomplete", zap.String("element", elementID), zap.Int("frames", frames), zap.Error(err))
		return
	}
	r.log.Info("Animation recorded", zap.String("element", elementID), zap.Int("frames", frames), zap.String("dir", r.dir))
}
