package deck

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/slides/v1"

	"github.com/matt-g-everett/slidetx/api"
	"github.com/matt-g-everett/slidetx/stream"
	"github.com/matt-g-everett/slidetx/stream/glyph"
	"github.com/matt-g-everett/slidetx/util"
)

// Result identifies the presentation a deck was written to.
type Result struct {
	PresentationID  string `json:"presentationId"`
	PresentationURL string `json:"presentationUrl"`
	Mode            string `json:"mode,omitempty"`
	Slides          int    `json:"slides"`
	Animations      int    `json:"animations"`
}

func newResult(presentationID string, mode Mode) *Result {
	return &Result{
		PresentationID:  presentationID,
		PresentationURL: api.PresentationURL(presentationID),
		Mode:            mode.String(),
	}
}

// Generator writes decks through a Streamer.
type Generator struct {
	backend  stream.Backend
	streamer *stream.Streamer
	glyphs   *glyph.Generator
	ease     util.EaseFunc
	newID    func() string
	log      *zap.Logger
}

// NewGenerator creates an instance of a Generator. Requests go through
// streamer, which must dispatch to backend.
func NewGenerator(backend stream.Backend, streamer *stream.Streamer, glyphs *glyph.Generator,
	ease util.EaseFunc, log *zap.Logger) *Generator {

	g := new(Generator)
	g.backend = backend
	g.streamer = streamer
	g.glyphs = glyphs
	g.ease = ease
	g.log = log
	g.newID = func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return g
}

// SetIDSource replaces the random suffix used in new object ids.
func (g *Generator) SetIDSource(fn func() string) {
	g.newID = fn
}

func (g *Generator) get(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	p, err := g.backend.Get(ctx, presentationID)
	if err != nil {
		return nil, &stream.BackendError{Op: "get", PresentationID: presentationID, Err: err}
	}
	return p, nil
}

func (g *Generator) create(ctx context.Context, title string) (*slides.Presentation, error) {
	p, err := g.backend.Create(ctx, title)
	if err != nil {
		return nil, &stream.BackendError{Op: "create", Err: err}
	}
	return p, nil
}

// Generate applies d in the mode its fields select.
func (g *Generator) Generate(ctx context.Context, d *Deck) (*Result, error) {
	mode := d.Mode()
	g.log.Info("Generating deck", zap.Stringer("mode", mode), zap.Int("slides", len(d.Slides)))

	if mode == ModeUpdate {
		return g.updateSlide(ctx, d)
	}

	var (
		presentationID = d.PresentationID
		offset         int
	)
	switch mode {
	case ModeNew:
		p, err := g.create(ctx, d.Title)
		if err != nil {
			return nil, err
		}
		presentationID = p.PresentationId
		g.log.Debug("Presentation created", zap.String("presentation", presentationID))
		if len(p.Slides) > 0 {
			if err := g.streamer.Dispatch(ctx, presentationID,
				[]*slides.Request{stream.DeleteObject(p.Slides[0].ObjectId)}); err != nil {
				return nil, err
			}
		}
	case ModeAppend:
		p, err := g.get(ctx, presentationID)
		if err != nil {
			return nil, err
		}
		offset = len(p.Slides)
	case ModeReplace:
		p, err := g.get(ctx, presentationID)
		if err != nil {
			return nil, err
		}
		var deletes []*slides.Request
		for _, s := range p.Slides {
			deletes = append(deletes, stream.DeleteObject(s.ObjectId))
		}
		if err := g.streamer.Dispatch(ctx, presentationID, deletes); err != nil {
			return nil, err
		}
		g.log.Debug("Existing slides removed", zap.Int("count", len(deletes)))
	}

	res := newResult(presentationID, mode)
	controller := stream.NewController(g.streamer, presentationID, g.log)
	theme := d.Colours()

	var reqs []*slides.Request
	for i, s := range d.Slides {
		index := i + offset
		slideID := "slide_" + strconv.Itoa(index) + "_" + g.newID()
		reqs = append(reqs, stream.CreateSlide(slideID, index, "BLANK"))
		bg, err := g.background(slideID, s, theme)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, bg...)
		for j, el := range s.Elements {
			elems, err := g.element(controller, slideID, slideID+"_text_"+strconv.Itoa(j), el, theme)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, elems...)
		}
	}
	res.Slides = len(d.Slides)
	res.Animations = controller.Len()

	if err := g.streamer.Dispatch(ctx, presentationID, reqs); err != nil {
		return nil, err
	}
	if err := controller.Run(ctx); err != nil {
		return nil, err
	}
	if err := g.notes(ctx, presentationID, d, offset); err != nil {
		return nil, err
	}
	return res, nil
}

func (g *Generator) background(slideID string, s Slide, theme stream.Theme) ([]*slides.Request, error) {
	if s.Background.IsZero() {
		return nil, nil
	}
	c, err := stream.ResolveColour(s.Background, theme)
	if err != nil {
		return nil, err
	}
	return []*slides.Request{stream.SetBackground(slideID, c)}, nil
}

// element returns the creation requests of el. Animated elements are
// queued on controller and contribute their blank initial state.
func (g *Generator) element(controller *stream.Controller, slideID, elementID string, el stream.TextElement,
	theme stream.Theme) ([]*slides.Request, error) {

	c, err := stream.ResolveColour(el.Color, theme)
	if err != nil {
		return nil, err
	}
	if !el.Animated() {
		return stream.BuildTextBox(slideID, elementID, el, c), nil
	}
	return controller.Add(stream.NewMatrixReveal(slideID, elementID, el, c, g.glyphs, g.ease)), nil
}

// notes inserts speaker notes into the slides built from d, found after a
// fresh fetch because the service assigns the notes object ids.
func (g *Generator) notes(ctx context.Context, presentationID string, d *Deck, offset int) error {
	p, err := g.get(ctx, presentationID)
	if err != nil {
		return err
	}
	var reqs []*slides.Request
	for i, s := range p.Slides {
		ci := i - offset
		if ci < 0 || ci >= len(d.Slides) || d.Slides[ci].Notes == "" {
			continue
		}
		if id := notesID(s); id != "" {
			reqs = append(reqs, stream.InsertText(id, d.Slides[ci].Notes))
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	return g.streamer.Dispatch(ctx, presentationID, reqs)
}

func notesID(s *slides.Page) string {
	if s.SlideProperties == nil || s.SlideProperties.NotesPage == nil ||
		s.SlideProperties.NotesPage.NotesProperties == nil {
		return ""
	}
	return s.SlideProperties.NotesPage.NotesProperties.SpeakerNotesObjectId
}

// hasNotesText reports whether the notes shape of s holds any visible text.
func hasNotesText(s *slides.Page, id string) bool {
	if s.SlideProperties == nil || s.SlideProperties.NotesPage == nil {
		return false
	}
	for _, el := range s.SlideProperties.NotesPage.PageElements {
		if el.ObjectId != id || el.Shape == nil || el.Shape.Text == nil {
			continue
		}
		for _, te := range el.Shape.Text.TextElements {
			if te.TextRun != nil && strings.TrimSpace(te.TextRun.Content) != "" {
				return true
			}
		}
	}
	return false
}

// updateSlide rebuilds one existing slide from the first slide of d,
// replaying its animations in place.
func (g *Generator) updateSlide(ctx context.Context, d *Deck) (*Result, error) {
	if len(d.Slides) == 0 {
		return nil, &stream.ConfigError{Msg: "no slides defined in config for update"}
	}
	def := d.Slides[0]

	p, err := g.get(ctx, d.PresentationID)
	if err != nil {
		return nil, err
	}
	n := len(p.Slides)
	if n == 0 {
		return nil, &stream.RangeError{Msg: "presentation has no slides to update"}
	}
	index := d.UpdateSlide.Resolve(n)
	if index < 0 || index >= n {
		return nil, &stream.RangeError{Msg: fmt.Sprintf("slide index %d out of range (0-%d)", index, n-1)}
	}
	target := p.Slides[index]
	slideID := target.ObjectId
	g.log.Debug("Updating slide", zap.String("slide", slideID), zap.Int("index", index),
		zap.Int("elements", len(target.PageElements)))

	var reqs []*slides.Request
	for _, el := range target.PageElements {
		if el.ObjectId != "" {
			reqs = append(reqs, stream.DeleteObject(el.ObjectId))
		}
	}
	theme := d.Colours()
	bg, err := g.background(slideID, def, theme)
	if err != nil {
		return nil, err
	}
	reqs = append(reqs, bg...)

	res := newResult(d.PresentationID, ModeUpdate)
	controller := stream.NewController(g.streamer, d.PresentationID, g.log)
	for j, el := range def.Elements {
		elems, err := g.element(controller, slideID, slideID+"_elem_"+strconv.Itoa(j), el, theme)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, elems...)
	}
	res.Slides = 1
	res.Animations = controller.Len()

	if err := g.streamer.Dispatch(ctx, d.PresentationID, reqs); err != nil {
		return nil, err
	}
	if err := controller.Run(ctx); err != nil {
		return nil, err
	}

	if def.Notes != "" {
		if id := notesID(target); id != "" {
			var notes []*slides.Request
			if hasNotesText(target, id) {
				notes = append(notes, stream.DeleteAllText(id))
			}
			notes = append(notes, stream.InsertText(id, def.Notes))
			if err := g.streamer.Dispatch(ctx, d.PresentationID, notes); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}
