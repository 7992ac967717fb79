package deck

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matt-g-everett/slidetx/stream"
)

const sampleYAML = `
title: Launch
theme:
  colors:
    brand: {red: 0.1, green: 0.2, blue: 0.3}
slides:
  - background: brand
    elements:
      - {text: "Wake up", x: 50, y: 150, w: 600, h: 60, size: 40, color: matrixGreen, animate: matrix}
      - {text: "Follow", x: 50, y: 250, w: 600, h: 40, size: 20, color: {red: 1, green: 1, blue: 1}}
    notes: Knock knock
`

func TestParse_YAML(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Mode() != ModeNew {
		t.Errorf("mode = %v", d.Mode())
	}
	if len(d.Slides) != 1 || len(d.Slides[0].Elements) != 2 {
		t.Fatalf("slides = %+v", d.Slides)
	}
	if !d.Slides[0].Elements[0].Animated() || d.Slides[0].Elements[1].Animated() {
		t.Error("animation flags wrong")
	}
	if c := d.Colours()["brand"]; c.B != 0.3 {
		t.Errorf("brand = %v", c)
	}
}

func TestParse_JSON(t *testing.T) {
	in := `{"presentationId": "abc", "updateSlide": "last",
		"slides": [{"elements": [{"text": "Hi", "x": 0, "y": 0, "w": 10, "h": 10, "size": 12, "color": "white"}]}]}`
	d, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Mode() != ModeUpdate || !d.UpdateSlide.Last {
		t.Errorf("update target = %+v", d.UpdateSlide)
	}
	if d.UpdateSlide.Resolve(4) != 3 {
		t.Errorf("last of 4 = %d", d.UpdateSlide.Resolve(4))
	}
}

func TestModes(t *testing.T) {
	tests := []struct {
		deck Deck
		want Mode
	}{
		{Deck{Title: "x"}, ModeNew},
		{Deck{PresentationID: "p", Append: true}, ModeAppend},
		{Deck{PresentationID: "p"}, ModeReplace},
		{Deck{PresentationID: "p", Append: true, UpdateSlide: &SlideTarget{Index: 2}}, ModeUpdate},
	}
	for _, tt := range tests {
		if got := tt.deck.Mode(); got != tt.want {
			t.Errorf("%+v: mode %v, want %v", tt.deck, got, tt.want)
		}
	}
}

func TestParse_CollectsAllProblems(t *testing.T) {
	in := `
slides:
  - background: nosuchcolour
    elements:
      - {text: "", x: 0, y: 0, w: 0, h: 10, size: 12, color: white}
      - {text: "ok", x: 0, y: 0, w: 10, h: 10, size: 12}
      - {text: "ok", x: 0, y: 0, w: 10, h: 10, size: 12, color: puce, animate: sparkle}
`
	_, err := Parse([]byte(in))
	var cerr *stream.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	for _, want := range []string{"Title", "Text", "W", "Animate", "nosuchcolour", "colour is required", "puce"} {
		if !strings.Contains(cerr.Msg, want) {
			t.Errorf("message lacks %q: %s", want, cerr.Msg)
		}
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("title: x\nslides: []\nsparkle: true\n")); err == nil {
		t.Error("unknown field accepted")
	}
	if _, err := Parse([]byte("title: x\nupdateSlide: first\nslides: []\n")); err == nil {
		t.Error("bad update target accepted")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if d.Title != "Launch" {
		t.Errorf("title = %q", d.Title)
	}
	if _, err := Read(strings.NewReader("  \n")); err == nil {
		t.Error("empty input accepted")
	}
}
