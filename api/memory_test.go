package api

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/slides/v1"

	"github.com/matt-g-everett/slidetx/stream"
)

func newDeck(t *testing.T) (*Memory, string) {
	t.Helper()
	m := NewMemory()
	p, err := m.Create(context.Background(), "Test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return m, p.PresentationId
}

func TestMemory_CreateHasDefaultSlide(t *testing.T) {
	m, id := newDeck(t)
	p, err := m.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(p.Slides) != 1 || p.Slides[0].ObjectId != "p" {
		t.Fatalf("expected one default slide, got %+v", p.Slides)
	}
	if p.Title != "Test" {
		t.Errorf("title = %q", p.Title)
	}
	notes := p.Slides[0].SlideProperties.NotesPage.NotesProperties.SpeakerNotesObjectId
	if notes != "p_notes" {
		t.Errorf("notes id = %q", notes)
	}
}

func TestMemory_TextBoxLifecycle(t *testing.T) {
	m, id := newDeck(t)
	ctx := context.Background()
	el := stream.TextElement{Text: "Hi", X: 10, Y: 20, W: 100, H: 40, Size: 24}
	reqs := stream.BuildTextBox("p", "box", el, stream.MatrixGreen)
	reqs = append(reqs, stream.UpdateTextStyle("box", 24, true, stream.FlashGreen, stream.FixedRange(1, 2)))
	if err := m.BatchUpdate(ctx, id, reqs); err != nil {
		t.Fatalf("batch: %v", err)
	}

	p, _ := m.Get(ctx, id)
	els := p.Slides[0].PageElements
	if len(els) != 1 {
		t.Fatalf("expected one element, got %d", len(els))
	}
	if got := els[0].Transform.TranslateX; got != stream.Pt(10) {
		t.Errorf("x = %v, want %v", got, stream.Pt(10))
	}
	runs := els[0].Shape.Text.TextElements
	if len(runs) != 2 {
		t.Fatalf("expected two runs, got %d", len(runs))
	}
	if runs[0].TextRun.Content != "H" || runs[1].TextRun.Content != "i" {
		t.Errorf("runs = %q %q", runs[0].TextRun.Content, runs[1].TextRun.Content)
	}
	if !runs[1].TextRun.Style.Bold || runs[0].TextRun.Style.Bold {
		t.Errorf("bold not applied to the second run only")
	}
	if got := stream.ColourFromAPI(runs[1].TextRun.Style.ForegroundColor.OpaqueColor.RgbColor); got != stream.FlashGreen {
		t.Errorf("colour = %v", got)
	}

	if err := m.BatchUpdate(ctx, id, []*slides.Request{stream.MoveTo("box", 5, 6)}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := m.BatchUpdate(ctx, id, []*slides.Request{stream.DeleteObject("box")}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	p, _ = m.Get(ctx, id)
	if len(p.Slides[0].PageElements) != 0 {
		t.Errorf("element not deleted")
	}
	if len(m.Batches()) != 3 {
		t.Errorf("batches = %d", len(m.Batches()))
	}
}

func TestMemory_BatchIsAtomic(t *testing.T) {
	m, id := newDeck(t)
	ctx := context.Background()
	reqs := []*slides.Request{
		stream.CreateTextBox("p", "ok", 0, 0, 10, 10),
		stream.DeleteObject("missing"),
	}
	err := m.BatchUpdate(ctx, id, reqs)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p, _ := m.Get(ctx, id)
	if len(p.Slides[0].PageElements) != 0 {
		t.Errorf("failed batch left changes behind")
	}
	if len(m.Batches()) != 0 {
		t.Errorf("failed batch was recorded")
	}
}

func TestMemory_RangeOutsideText(t *testing.T) {
	m, id := newDeck(t)
	ctx := context.Background()
	reqs := []*slides.Request{
		stream.CreateTextBox("p", "box", 0, 0, 10, 10),
		stream.InsertText("box", "abc"),
		stream.UpdateTextStyle("box", 12, false, stream.Black, stream.FixedRange(2, 4)),
	}
	if err := m.BatchUpdate(ctx, id, reqs); err == nil {
		t.Fatal("expected range error")
	}
}

func TestMemory_SlidesAndBackground(t *testing.T) {
	m, id := newDeck(t)
	ctx := context.Background()
	reqs := []*slides.Request{
		stream.CreateSlide("s1", 1, "BLANK"),
		stream.CreateSlide("s0", 0, "TITLE_AND_BODY"),
		stream.SetBackground("s1", stream.MatrixGreen),
		stream.DeleteObject("p"),
	}
	if err := m.BatchUpdate(ctx, id, reqs); err != nil {
		t.Fatalf("batch: %v", err)
	}
	p, _ := m.Get(ctx, id)
	if len(p.Slides) != 2 || p.Slides[0].ObjectId != "s0" || p.Slides[1].ObjectId != "s1" {
		t.Fatalf("unexpected slide order")
	}
	if len(p.Slides[0].PageElements) != 2 {
		t.Errorf("expected title and body placeholders")
	}
	if p.Slides[0].PageElements[0].Shape.Placeholder.Type != "TITLE" {
		t.Errorf("first placeholder is not the title")
	}
	bg := p.Slides[1].PageProperties.PageBackgroundFill.SolidFill.Color.RgbColor
	if stream.ColourFromAPI(bg) != stream.MatrixGreen {
		t.Errorf("background = %+v", bg)
	}

	err := m.BatchUpdate(ctx, id, []*slides.Request{stream.CreateSlide("s1", 0, "BLANK")})
	if err == nil {
		t.Error("duplicate slide id accepted")
	}
}

func TestMemory_FailAfter(t *testing.T) {
	m, id := newDeck(t)
	ctx := context.Background()
	boom := errors.New("boom")
	m.FailAfter(1, boom)
	if err := m.BatchUpdate(ctx, id, []*slides.Request{stream.CreateTextBox("p", "a", 0, 0, 1, 1)}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := m.BatchUpdate(ctx, id, []*slides.Request{stream.DeleteObject("a")}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
}

func TestMemory_LoadRoundTrip(t *testing.T) {
	m := NewMemory()
	m.Load(&slides.Presentation{
		PresentationId: "deck",
		Slides: []*slides.Page{{
			ObjectId: "slide0",
			PageElements: []*slides.PageElement{{
				ObjectId: "elem1",
				Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
					{TextRun: &slides.TextRun{Content: "Hello"}},
				}}},
			}},
			SlideProperties: &slides.SlideProperties{NotesPage: &slides.Page{
				ObjectId:        "slide0_notespage",
				NotesProperties: &slides.NotesProperties{SpeakerNotesObjectId: "slide0_notes"},
			}},
		}},
	})

	ctx := context.Background()
	if err := m.BatchUpdate(ctx, "deck", []*slides.Request{stream.InsertText("slide0_notes", "Say hi")}); err != nil {
		t.Fatalf("insert notes: %v", err)
	}
	p, err := m.Get(ctx, "deck")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := p.Slides[0].PageElements[0].Shape.Text.TextElements[0].TextRun.Content; got != "Hello" {
		t.Errorf("element text = %q", got)
	}
	notes := p.Slides[0].SlideProperties.NotesPage.PageElements[0]
	if got := notes.Shape.Text.TextElements[0].TextRun.Content; got != "Say hi" {
		t.Errorf("notes text = %q", got)
	}
	if _, err := m.Get(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
