package preview

import (
	"context"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"google.golang.org/api/slides/v1"

	"github.com/matt-g-everett/slidetx/stream"
)

// Getter fetches the current state of a presentation.
type Getter interface {
	Get(ctx context.Context, presentationID string) (*slides.Presentation, error)
}

// Default page size of a 16:9 presentation, in points.
const (
	pageWidth  = 720.0
	pageHeight = 405.0
)

func points(d *slides.Dimension) float64 {
	if d == nil {
		return 0
	}
	if d.Unit == "PT" {
		return d.Magnitude
	}
	return stream.FromEMU(d.Magnitude)
}

func pageSize(p *slides.Presentation) (w, h float64) {
	if p.PageSize == nil {
		return pageWidth, pageHeight
	}
	w, h = points(p.PageSize.Width), points(p.PageSize.Height)
	if w <= 0 || h <= 0 {
		return pageWidth, pageHeight
	}
	return w, h
}

func fetchPage(ctx context.Context, g Getter, presentationID, pageID string) (*slides.Presentation, *slides.Page, error) {
	p, err := g.Get(ctx, presentationID)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range p.Slides {
		if s.ObjectId == pageID {
			return p, s, nil
		}
	}
	return nil, nil, fmt.Errorf("page %s not found in %s", pageID, presentationID)
}

func findElement(page *slides.Page, id string) *slides.PageElement {
	for _, el := range page.PageElements {
		if el.ObjectId == id {
			return el
		}
	}
	return nil
}

func background(page *slides.Page) colorful.Color {
	if page.PageProperties == nil || page.PageProperties.PageBackgroundFill == nil ||
		page.PageProperties.PageBackgroundFill.SolidFill == nil ||
		page.PageProperties.PageBackgroundFill.SolidFill.Color == nil {
		return stream.Palette["white"]
	}
	return stream.ColourFromAPI(page.PageProperties.PageBackgroundFill.SolidFill.Color.RgbColor)
}

// run is a stretch of identically styled text.
type run struct {
	text   string
	size   float64
	bold   bool
	colour colorful.Color
}

func runs(el *slides.PageElement) []run {
	if el.Shape == nil || el.Shape.Text == nil {
		return nil
	}
	var out []run
	for _, te := range el.Shape.Text.TextElements {
		if te.TextRun == nil || te.TextRun.Content == "" {
			continue
		}
		r := run{text: te.TextRun.Content, size: 18, colour: stream.Black}
		if st := te.TextRun.Style; st != nil {
			if st.FontSize != nil {
				r.size = points(st.FontSize)
			}
			r.bold = st.Bold
			if st.ForegroundColor != nil && st.ForegroundColor.OpaqueColor != nil {
				r.colour = stream.ColourFromAPI(st.ForegroundColor.OpaqueColor.RgbColor)
			}
		}
		out = append(out, r)
	}
	return out
}

// position returns the top left corner of el in points.
func position(el *slides.PageElement) (x, y float64) {
	if el.Transform == nil {
		return 0, 0
	}
	if el.Transform.Unit == "PT" {
		return el.Transform.TranslateX, el.Transform.TranslateY
	}
	return stream.FromEMU(el.Transform.TranslateX), stream.FromEMU(el.Transform.TranslateY)
}
