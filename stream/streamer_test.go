package stream_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/api/slides/v1"

	"github.com/matt-g-everett/slidetx/api"
	"github.com/matt-g-everett/slidetx/stream"
	"github.com/matt-g-everett/slidetx/stream/glyph"
	"github.com/matt-g-everett/slidetx/util"
)

type recorder struct {
	frames []int
	done   []int
	errs   []error
}

func (r *recorder) FrameSent(_ context.Context, _ string, f *stream.Frame) error {
	r.frames = append(r.frames, f.Index)
	return errors.New("observer failures are only logged")
}

func (r *recorder) SequenceDone(_ context.Context, _, _ string, frames int, err error) {
	r.done = append(r.done, frames)
	r.errs = append(r.errs, err)
}

func setup(t *testing.T) (*api.Memory, string, *stream.Streamer) {
	t.Helper()
	mem := api.NewMemory()
	p, err := mem.Create(context.Background(), "Test")
	if err != nil {
		t.Fatal(err)
	}
	return mem, p.PresentationId, stream.NewStreamer(mem, 0, zaptest.NewLogger(t))
}

func reveal(text, elementID string) *stream.MatrixReveal {
	el := stream.TextElement{Text: text, X: 40, Y: 120, W: 500, H: 60, Size: 36}
	g := glyph.NewGenerator("", util.NewRandomSource(7))
	return stream.NewMatrixReveal("p", elementID, el, stream.MatrixGreen, g, nil)
}

func elementText(t *testing.T, mem *api.Memory, id, elementID string) string {
	t.Helper()
	p, err := mem.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	for _, el := range p.Slides[0].PageElements {
		if el.ObjectId != elementID {
			continue
		}
		var b strings.Builder
		for _, te := range el.Shape.Text.TextElements {
			b.WriteString(te.TextRun.Content)
		}
		return b.String()
	}
	t.Fatalf("element %s not found", elementID)
	return ""
}

func TestStreamer_PlayHello(t *testing.T) {
	mem, id, s := setup(t)
	rec := &recorder{}
	s.AddObserver(rec)

	if err := s.Play(context.Background(), id, reveal("Hello", "e")); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := len(mem.Batches()); got != 11 {
		t.Errorf("batches = %d, want 11", got)
	}
	if len(rec.frames) != 11 || rec.frames[0] != stream.SetupFrame || rec.frames[10] != 9 {
		t.Errorf("observed frames %v", rec.frames)
	}
	if len(rec.done) != 1 || rec.done[0] != 10 || rec.errs[0] != nil {
		t.Errorf("sequence end = %v %v", rec.done, rec.errs)
	}
	if got := elementText(t, mem, id, "e"); got != "Hello" {
		t.Errorf("final text = %q", got)
	}

	created, deleted := 0, 0
	for _, r := range mem.Requests() {
		if r.CreateShape != nil && strings.Contains(r.CreateShape.ObjectId, "_rain_") {
			created++
		}
		if r.DeleteObject != nil {
			deleted++
		}
	}
	if created != 5 || deleted != 5 {
		t.Errorf("drops created %d, deleted %d", created, deleted)
	}
	p, _ := mem.Get(context.Background(), id)
	if len(p.Slides[0].PageElements) != 1 {
		t.Errorf("%d elements left on the slide", len(p.Slides[0].PageElements))
	}
}

func TestStreamer_PlaySingleChar(t *testing.T) {
	mem, id, s := setup(t)
	if err := s.Play(context.Background(), id, reveal("X", "e")); err != nil {
		t.Fatalf("play: %v", err)
	}
	batches := mem.Batches()
	if len(batches) != 9 {
		t.Fatalf("batches = %d, want 9", len(batches))
	}
	final := batches[len(batches)-1].Requests
	if final[1].InsertText == nil || final[1].InsertText.Text != "X" {
		t.Errorf("final insert = %+v", final[1].InsertText)
	}
}

func TestStreamer_NothingToAnimate(t *testing.T) {
	mem, id, s := setup(t)
	if err := s.Play(context.Background(), id, reveal("   ", "e")); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := len(mem.Batches()); got != 1 {
		t.Errorf("batches = %d, want only the creation batch", got)
	}
}

func TestStreamer_DispatchChunks(t *testing.T) {
	mem, id, _ := setup(t)
	s := stream.NewStreamer(mem, 50, zaptest.NewLogger(t))

	var reqs []*slides.Request
	for i := 0; i < 120; i++ {
		reqs = append(reqs, stream.CreateSlide("s"+strings.Repeat("x", i+1), 1, "BLANK"))
	}
	if err := s.Dispatch(context.Background(), id, reqs); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var sizes []int
	for _, b := range mem.Batches() {
		sizes = append(sizes, len(b.Requests))
	}
	if len(sizes) != 3 || sizes[0] != 50 || sizes[1] != 50 || sizes[2] != 20 {
		t.Errorf("chunk sizes = %v", sizes)
	}
	if s.BatchSize() != 50 {
		t.Errorf("batch size = %d", s.BatchSize())
	}
}

func TestStreamer_AbortsOnFailure(t *testing.T) {
	mem, id, s := setup(t)
	rec := &recorder{}
	s.AddObserver(rec)
	boom := errors.New("quota exceeded")
	mem.FailAfter(3, boom)

	err := s.Play(context.Background(), id, reveal("Hello", "e"))
	var berr *stream.BackendError
	if !errors.As(err, &berr) || !errors.Is(err, boom) {
		t.Fatalf("expected a backend error wrapping the failure, got %v", err)
	}
	if berr.PresentationID != id {
		t.Errorf("presentation = %q", berr.PresentationID)
	}
	if got := len(mem.Batches()); got != 3 {
		t.Errorf("batches = %d, want 3", got)
	}
	if len(rec.done) != 1 || rec.done[0] != 2 || !errors.Is(rec.errs[0], boom) {
		t.Errorf("sequence end = %v %v", rec.done, rec.errs)
	}
}

func TestStreamer_StopsWhenCancelled(t *testing.T) {
	mem, id, s := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	a := reveal("Hi", "e")
	if err := s.Setup(ctx, id, a); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := s.PlayFrames(ctx, id, a); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := len(mem.Batches()); got != 1 {
		t.Errorf("batches = %d, want 1", got)
	}
}

func TestController_RunsInOrder(t *testing.T) {
	mem, id, s := setup(t)
	c := stream.NewController(s, id, zaptest.NewLogger(t))
	a, b := reveal("A", "first"), reveal("B", "second")

	var creation []*slides.Request
	creation = append(creation, c.Add(a)...)
	creation = append(creation, c.Add(b)...)
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	if err := s.Dispatch(context.Background(), id, creation); err != nil {
		t.Fatal(err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	batches := mem.Batches()
	if len(batches) != 1+8+8 {
		t.Fatalf("batches = %d", len(batches))
	}
	for i, b := range batches[1:] {
		want := "first"
		if i >= 8 {
			want = "second"
		}
		if got := b.Requests[0].DeleteText.ObjectId; got != want {
			t.Errorf("batch %d animates %s, want %s", i+1, got, want)
		}
	}
	if got := elementText(t, mem, id, "second"); got != "B" {
		t.Errorf("second text = %q", got)
	}
	if c.Len() != 0 {
		t.Error("queue not drained")
	}
}

func TestController_ObserversSeeCreationFrames(t *testing.T) {
	_, id, s := setup(t)
	rec := new(recorder)
	s.AddObserver(rec)
	c := stream.NewController(s, id, zaptest.NewLogger(t))

	var creation []*slides.Request
	creation = append(creation, c.Add(reveal("A", "first"))...)
	creation = append(creation, c.Add(reveal("B", "second"))...)
	if err := s.Dispatch(context.Background(), id, creation); err != nil {
		t.Fatal(err)
	}
	if len(rec.frames) != 0 {
		t.Fatalf("observers notified before Run: %v", rec.frames)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []int{stream.SetupFrame, 0, 1, 2, 3, 4, 5, 6, 7, stream.SetupFrame, 0, 1, 2, 3, 4, 5, 6, 7}
	if len(rec.frames) != len(want) {
		t.Fatalf("frames = %v, want %v", rec.frames, want)
	}
	for i := range want {
		if rec.frames[i] != want[i] {
			t.Fatalf("frames = %v, want %v", rec.frames, want)
		}
	}
}
