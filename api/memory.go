package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"google.golang.org/api/slides/v1"

	"github.com/matt-g-everett/slidetx/stream"
)

// ErrNotFound is returned when a presentation or object does not exist.
var ErrNotFound = errors.New("not found")

// Standard 16:9 page, in EMU.
const (
	pageWidthEMU  = 9144000
	pageHeightEMU = 5143500
)

type textStyle struct {
	font   string
	size   float64
	bold   bool
	colour colorful.Color
}

var defaultStyle = textStyle{font: "Arial", size: 18}

type memShape struct {
	id          string
	pageID      string
	shapeType   string
	placeholder string
	x, y, w, h  float64
	text        []uint16
	styles      []textStyle
	lineSpacing float64
	alignment   string
}

func (s *memShape) clone() *memShape {
	c := *s
	c.text = append([]uint16(nil), s.text...)
	c.styles = append([]textStyle(nil), s.styles...)
	return &c
}

type memPage struct {
	id          string
	notesPageID string
	notesID     string
	background  *colorful.Color
	elements    []string
}

func (p *memPage) clone() *memPage {
	c := *p
	c.elements = append([]string(nil), p.elements...)
	if p.background != nil {
		bg := *p.background
		c.background = &bg
	}
	return &c
}

type memPresentation struct {
	id     string
	title  string
	pages  []*memPage
	shapes map[string]*memShape
}

func (p *memPresentation) clone() *memPresentation {
	c := &memPresentation{id: p.id, title: p.title, shapes: make(map[string]*memShape, len(p.shapes))}
	for _, pg := range p.pages {
		c.pages = append(c.pages, pg.clone())
	}
	for id, s := range p.shapes {
		c.shapes[id] = s.clone()
	}
	return c
}

// Batch is one recorded BatchUpdate call.
type Batch struct {
	PresentationID string
	Requests       []*slides.Request
}

// Memory is an in-process presentation service. Batches are applied
// atomically: a failing request leaves the presentation untouched.
type Memory struct {
	mu            sync.Mutex
	presentations map[string]*memPresentation
	batches       []Batch
	gets          int
	failAfter     int
	failErr       error
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{presentations: make(map[string]*memPresentation), failAfter: -1}
}

// FailAfter makes every BatchUpdate after the first n successful ones fail
// with err.
func (m *Memory) FailAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.failErr = err
}

// Batches returns every batch applied so far.
func (m *Memory) Batches() []Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Batch(nil), m.batches...)
}

// Requests returns all applied requests in order.
func (m *Memory) Requests() []*slides.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*slides.Request
	for _, b := range m.batches {
		out = append(out, b.Requests...)
	}
	return out
}

// Gets returns how many times Get was called.
func (m *Memory) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// Load imports p, replacing any presentation with the same id.
func (m *Memory) Load(p *slides.Presentation) {
	mp := &memPresentation{id: p.PresentationId, title: p.Title, shapes: make(map[string]*memShape)}
	for _, s := range p.Slides {
		pg := newPage(s.ObjectId)
		if np := notesPage(s); np != nil {
			pg.notesPageID = np.ObjectId
			if np.NotesProperties != nil && np.NotesProperties.SpeakerNotesObjectId != "" {
				pg.notesID = np.NotesProperties.SpeakerNotesObjectId
			}
			for _, el := range np.PageElements {
				if el.ObjectId == pg.notesID {
					mp.shapes[pg.notesID] = importShape(pg.notesPageID, el)
				}
			}
		}
		if _, ok := mp.shapes[pg.notesID]; !ok {
			mp.shapes[pg.notesID] = &memShape{id: pg.notesID, pageID: pg.notesPageID, shapeType: "TEXT_BOX"}
		}
		if bg := background(s); bg != nil {
			c := stream.ColourFromAPI(bg)
			pg.background = &c
		}
		for _, el := range s.PageElements {
			mp.shapes[el.ObjectId] = importShape(s.ObjectId, el)
			pg.elements = append(pg.elements, el.ObjectId)
		}
		mp.pages = append(mp.pages, pg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.presentations[mp.id] = mp
}

func notesPage(s *slides.Page) *slides.Page {
	if s.SlideProperties == nil {
		return nil
	}
	return s.SlideProperties.NotesPage
}

func background(s *slides.Page) *slides.RgbColor {
	pp := s.PageProperties
	if pp == nil || pp.PageBackgroundFill == nil || pp.PageBackgroundFill.SolidFill == nil ||
		pp.PageBackgroundFill.SolidFill.Color == nil {
		return nil
	}
	return pp.PageBackgroundFill.SolidFill.Color.RgbColor
}

func importShape(pageID string, el *slides.PageElement) *memShape {
	sh := &memShape{id: el.ObjectId, pageID: pageID, shapeType: "TEXT_BOX"}
	if el.Transform != nil {
		sh.x, sh.y = el.Transform.TranslateX, el.Transform.TranslateY
	}
	if el.Size != nil && el.Size.Width != nil && el.Size.Height != nil {
		sh.w, sh.h = el.Size.Width.Magnitude, el.Size.Height.Magnitude
	}
	if el.Shape == nil {
		return sh
	}
	if el.Shape.ShapeType != "" {
		sh.shapeType = el.Shape.ShapeType
	}
	if el.Shape.Placeholder != nil {
		sh.placeholder = el.Shape.Placeholder.Type
	}
	if el.Shape.Text == nil {
		return sh
	}
	for _, te := range el.Shape.Text.TextElements {
		if te.TextRun == nil {
			continue
		}
		st := defaultStyle
		applyStyle(&st, te.TextRun.Style, "fontFamily,fontSize,foregroundColor,bold")
		for _, u := range utf16.Encode([]rune(te.TextRun.Content)) {
			sh.text = append(sh.text, u)
			sh.styles = append(sh.styles, st)
		}
	}
	return sh
}

func newPage(id string) *memPage {
	return &memPage{id: id, notesPageID: id + "_notespage", notesID: id + "_notes"}
}

// Create implements the stream.Backend interface. Like the real service it
// adds one default slide.
func (m *Memory) Create(_ context.Context, title string) (*slides.Presentation, error) {
	mp := &memPresentation{id: uuid.NewString(), title: title, shapes: make(map[string]*memShape)}
	pg := newPage("p")
	mp.pages = append(mp.pages, pg)
	mp.shapes[pg.notesID] = &memShape{id: pg.notesID, pageID: pg.notesPageID, shapeType: "TEXT_BOX"}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.presentations[mp.id] = mp
	return mp.snapshot(), nil
}

// Get implements the stream.Backend interface.
func (m *Memory) Get(_ context.Context, presentationID string) (*slides.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	mp, ok := m.presentations[presentationID]
	if !ok {
		return nil, fmt.Errorf("presentation %q: %w", presentationID, ErrNotFound)
	}
	return mp.snapshot(), nil
}

// BatchUpdate implements the stream.Backend interface.
func (m *Memory) BatchUpdate(ctx context.Context, presentationID string, reqs []*slides.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAfter >= 0 && len(m.batches) >= m.failAfter {
		return m.failErr
	}
	mp, ok := m.presentations[presentationID]
	if !ok {
		return fmt.Errorf("presentation %q: %w", presentationID, ErrNotFound)
	}
	work := mp.clone()
	for i, r := range reqs {
		if err := work.apply(r); err != nil {
			return fmt.Errorf("request #%d (%s): %w", i, stream.RequestKind(r), err)
		}
	}
	m.presentations[presentationID] = work
	m.batches = append(m.batches, Batch{PresentationID: presentationID, Requests: reqs})
	return nil
}

func (p *memPresentation) exists(id string) bool {
	if _, ok := p.shapes[id]; ok {
		return true
	}
	return p.page(id) != nil
}

func (p *memPresentation) page(id string) *memPage {
	for _, pg := range p.pages {
		if pg.id == id {
			return pg
		}
	}
	return nil
}

func (p *memPresentation) shape(id string) (*memShape, error) {
	sh, ok := p.shapes[id]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", id, ErrNotFound)
	}
	return sh, nil
}

func (p *memPresentation) apply(r *slides.Request) error {
	switch {
	case r.CreateSlide != nil:
		return p.createSlide(r.CreateSlide)
	case r.CreateShape != nil:
		return p.createShape(r.CreateShape)
	case r.InsertText != nil:
		return p.insertText(r.InsertText)
	case r.DeleteText != nil:
		sh, err := p.shape(r.DeleteText.ObjectId)
		if err != nil {
			return err
		}
		start, end, err := bounds(r.DeleteText.TextRange, len(sh.text))
		if err != nil {
			return err
		}
		sh.text = append(sh.text[:start], sh.text[end:]...)
		sh.styles = append(sh.styles[:start], sh.styles[end:]...)
		return nil
	case r.UpdateTextStyle != nil:
		u := r.UpdateTextStyle
		sh, err := p.shape(u.ObjectId)
		if err != nil {
			return err
		}
		start, end, err := bounds(u.TextRange, len(sh.text))
		if err != nil {
			return err
		}
		for i := start; i < end; i++ {
			applyStyle(&sh.styles[i], u.Style, u.Fields)
		}
		return nil
	case r.UpdateParagraphStyle != nil:
		sh, err := p.shape(r.UpdateParagraphStyle.ObjectId)
		if err != nil {
			return err
		}
		if st := r.UpdateParagraphStyle.Style; st != nil {
			sh.lineSpacing = st.LineSpacing
			sh.alignment = st.Alignment
		}
		return nil
	case r.UpdatePageElementTransform != nil:
		u := r.UpdatePageElementTransform
		sh, err := p.shape(u.ObjectId)
		if err != nil {
			return err
		}
		if u.Transform == nil {
			return errors.New("transform is required")
		}
		if u.ApplyMode == "RELATIVE" {
			sh.x += u.Transform.TranslateX
			sh.y += u.Transform.TranslateY
		} else {
			sh.x, sh.y = u.Transform.TranslateX, u.Transform.TranslateY
		}
		return nil
	case r.DeleteObject != nil:
		return p.deleteObject(r.DeleteObject.ObjectId)
	case r.UpdatePageProperties != nil:
		u := r.UpdatePageProperties
		pg := p.page(u.ObjectId)
		if pg == nil {
			return fmt.Errorf("page %q: %w", u.ObjectId, ErrNotFound)
		}
		if u.PageProperties != nil && u.PageProperties.PageBackgroundFill != nil &&
			u.PageProperties.PageBackgroundFill.SolidFill != nil &&
			u.PageProperties.PageBackgroundFill.SolidFill.Color != nil {
			c := stream.ColourFromAPI(u.PageProperties.PageBackgroundFill.SolidFill.Color.RgbColor)
			pg.background = &c
		}
		return nil
	}
	return errors.New("unsupported request")
}

func (p *memPresentation) createSlide(c *slides.CreateSlideRequest) error {
	id := c.ObjectId
	if id == "" {
		id = "g" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	if p.exists(id) {
		return fmt.Errorf("object id %q already in use", id)
	}
	index := int(c.InsertionIndex)
	if index < 0 || index > len(p.pages) {
		return fmt.Errorf("insertion index %d out of range (0-%d)", index, len(p.pages))
	}
	pg := newPage(id)
	p.shapes[pg.notesID] = &memShape{id: pg.notesID, pageID: pg.notesPageID, shapeType: "TEXT_BOX"}
	if c.SlideLayoutReference != nil && c.SlideLayoutReference.PredefinedLayout == "TITLE_AND_BODY" {
		for _, ph := range []struct {
			kind       string
			x, y, w, h float64
		}{
			{"TITLE", 311700, 445025, 8520600, 572700},
			{"BODY", 311700, 1152475, 8520600, 3416400},
		} {
			sh := &memShape{id: id + "_" + strings.ToLower(ph.kind), pageID: id, shapeType: "TEXT_BOX",
				placeholder: ph.kind, x: ph.x, y: ph.y, w: ph.w, h: ph.h}
			p.shapes[sh.id] = sh
			pg.elements = append(pg.elements, sh.id)
		}
	}
	p.pages = append(p.pages, nil)
	copy(p.pages[index+1:], p.pages[index:])
	p.pages[index] = pg
	return nil
}

func (p *memPresentation) createShape(c *slides.CreateShapeRequest) error {
	if c.ElementProperties == nil {
		return errors.New("element properties are required")
	}
	pg := p.page(c.ElementProperties.PageObjectId)
	if pg == nil {
		return fmt.Errorf("page %q: %w", c.ElementProperties.PageObjectId, ErrNotFound)
	}
	if p.exists(c.ObjectId) {
		return fmt.Errorf("object id %q already in use", c.ObjectId)
	}
	sh := &memShape{id: c.ObjectId, pageID: pg.id, shapeType: c.ShapeType}
	if t := c.ElementProperties.Transform; t != nil {
		sh.x, sh.y = toEMU(t.TranslateX, t.Unit), toEMU(t.TranslateY, t.Unit)
	}
	if s := c.ElementProperties.Size; s != nil && s.Width != nil && s.Height != nil {
		sh.w, sh.h = toEMU(s.Width.Magnitude, s.Width.Unit), toEMU(s.Height.Magnitude, s.Height.Unit)
	}
	p.shapes[sh.id] = sh
	pg.elements = append(pg.elements, sh.id)
	return nil
}

func toEMU(v float64, unit string) float64 {
	if unit == "PT" {
		return stream.Pt(v)
	}
	return v
}

func (p *memPresentation) insertText(c *slides.InsertTextRequest) error {
	sh, err := p.shape(c.ObjectId)
	if err != nil {
		return err
	}
	if c.Text == "" {
		return errors.New("text must not be empty")
	}
	at := int(c.InsertionIndex)
	if at < 0 || at > len(sh.text) {
		return fmt.Errorf("insertion index %d out of range (0-%d)", at, len(sh.text))
	}
	st := defaultStyle
	switch {
	case at > 0:
		st = sh.styles[at-1]
	case len(sh.styles) > 0:
		st = sh.styles[0]
	}
	units := utf16.Encode([]rune(c.Text))
	styles := make([]textStyle, len(units))
	for i := range styles {
		styles[i] = st
	}
	sh.text = append(sh.text[:at], append(units, sh.text[at:]...)...)
	sh.styles = append(sh.styles[:at], append(styles, sh.styles[at:]...)...)
	return nil
}

func (p *memPresentation) deleteObject(id string) error {
	for i, pg := range p.pages {
		if pg.id != id {
			continue
		}
		for _, el := range pg.elements {
			delete(p.shapes, el)
		}
		delete(p.shapes, pg.notesID)
		p.pages = append(p.pages[:i], p.pages[i+1:]...)
		return nil
	}
	sh, err := p.shape(id)
	if err != nil {
		return err
	}
	delete(p.shapes, id)
	if pg := p.page(sh.pageID); pg != nil {
		for i, el := range pg.elements {
			if el == id {
				pg.elements = append(pg.elements[:i], pg.elements[i+1:]...)
				break
			}
		}
	}
	return nil
}

func bounds(r *slides.Range, length int) (int, int, error) {
	if r == nil || r.Type == "ALL" || r.Type == "" {
		return 0, length, nil
	}
	start, end := 0, length
	if r.StartIndex != nil {
		start = int(*r.StartIndex)
	}
	if r.Type == "FIXED_RANGE" {
		if r.EndIndex == nil {
			return 0, 0, errors.New("fixed range requires an end index")
		}
		end = int(*r.EndIndex)
	}
	if start < 0 || end > length || start > end {
		return 0, 0, fmt.Errorf("range [%d,%d) outside text of length %d", start, end, length)
	}
	return start, end, nil
}

func applyStyle(st *textStyle, s *slides.TextStyle, fields string) {
	if s == nil {
		return
	}
	for _, f := range strings.Split(fields, ",") {
		switch strings.TrimSpace(f) {
		case "fontFamily":
			if s.FontFamily != "" {
				st.font = s.FontFamily
			}
		case "fontSize":
			if s.FontSize != nil {
				st.size = s.FontSize.Magnitude
			}
		case "bold":
			st.bold = s.Bold
		case "foregroundColor":
			if s.ForegroundColor != nil && s.ForegroundColor.OpaqueColor != nil {
				st.colour = stream.ColourFromAPI(s.ForegroundColor.OpaqueColor.RgbColor)
			}
		}
	}
}

func (p *memPresentation) snapshot() *slides.Presentation {
	out := &slides.Presentation{
		PresentationId: p.id,
		Title:          p.title,
		PageSize: &slides.Size{
			Width:  &slides.Dimension{Magnitude: pageWidthEMU, Unit: "EMU"},
			Height: &slides.Dimension{Magnitude: pageHeightEMU, Unit: "EMU"},
		},
	}
	for _, pg := range p.pages {
		page := &slides.Page{ObjectId: pg.id, PageType: "SLIDE"}
		for _, id := range pg.elements {
			page.PageElements = append(page.PageElements, p.shapes[id].element())
		}
		if pg.background != nil {
			page.PageProperties = &slides.PageProperties{
				PageBackgroundFill: &slides.PageBackgroundFill{
					SolidFill: &slides.SolidFill{Color: &slides.OpaqueColor{RgbColor: stream.RgbColor(*pg.background)}},
				},
			}
		}
		notes := &slides.Page{
			ObjectId:        pg.notesPageID,
			PageType:        "NOTES",
			NotesProperties: &slides.NotesProperties{SpeakerNotesObjectId: pg.notesID},
		}
		if sh, ok := p.shapes[pg.notesID]; ok {
			notes.PageElements = []*slides.PageElement{sh.element()}
		}
		page.SlideProperties = &slides.SlideProperties{NotesPage: notes}
		out.Slides = append(out.Slides, page)
	}
	return out
}

func (s *memShape) element() *slides.PageElement {
	el := &slides.PageElement{
		ObjectId: s.id,
		Size: &slides.Size{
			Width:  &slides.Dimension{Magnitude: s.w, Unit: "EMU"},
			Height: &slides.Dimension{Magnitude: s.h, Unit: "EMU"},
		},
		Transform: &slides.AffineTransform{ScaleX: 1, ScaleY: 1, TranslateX: s.x, TranslateY: s.y, Unit: "EMU"},
		Shape:     &slides.Shape{ShapeType: s.shapeType},
	}
	if s.placeholder != "" {
		el.Shape.Placeholder = &slides.Placeholder{Type: s.placeholder}
	}
	if len(s.text) == 0 {
		return el
	}
	// One text run per stretch of identically styled characters.
	content := &slides.TextContent{}
	start := 0
	for i := 1; i <= len(s.text); i++ {
		if i < len(s.text) && s.styles[i] == s.styles[start] {
			continue
		}
		st := s.styles[start]
		content.TextElements = append(content.TextElements, &slides.TextElement{
			StartIndex: int64(start),
			EndIndex:   int64(i),
			TextRun: &slides.TextRun{
				Content: string(utf16.Decode(s.text[start:i])),
				Style: &slides.TextStyle{
					FontFamily:      st.font,
					FontSize:        &slides.Dimension{Magnitude: st.size, Unit: "PT"},
					Bold:            st.bold,
					ForegroundColor: &slides.OptionalColor{OpaqueColor: &slides.OpaqueColor{RgbColor: stream.RgbColor(st.colour)}},
				},
			},
		})
		start = i
	}
	el.Shape.Text = content
	return el
}
