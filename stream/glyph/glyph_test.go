package glyph

import (
	"testing"
	"unicode/utf8"

	"github.com/matt-g-everett/slidetx/util"
)

func TestGarble_PreservesLengthAndPunctuation(t *testing.T) {
	g := NewGenerator("", util.NewRandomSource(42))

	inputs := []string{
		"",
		"Hello",
		"Hello, world!",
		"  (a) [b] - c; d: e? 'f' \"g\".",
		"ünïcödé text",
	}

	for _, in := range inputs {
		out := g.Garble(in)
		if got, want := utf8.RuneCountInString(out), utf8.RuneCountInString(in); got != want {
			t.Errorf("Garble(%q) length = %d, want %d", in, got, want)
			continue
		}
		src := []rune(in)
		for i, r := range []rune(out) {
			if IsPreserved(src[i]) {
				if r != src[i] {
					t.Errorf("Garble(%q)[%d] = %q, want preserved %q", in, i, r, src[i])
				}
				continue
			}
			if !g.InAlphabet(r) {
				t.Errorf("Garble(%q)[%d] = %q, not in alphabet", in, i, r)
			}
		}
	}
}

func TestGlyph_FromAlphabet(t *testing.T) {
	g := NewGenerator("ab", util.NewRandomSource(7))
	for i := 0; i < 50; i++ {
		s := g.Glyph()
		if s != "a" && s != "b" {
			t.Fatalf("Glyph() = %q, want a or b", s)
		}
	}
}

func TestGarble_DeterministicForSeed(t *testing.T) {
	a := NewGenerator("", util.NewRandomSource(3)).Garble("matrix reveal")
	b := NewGenerator("", util.NewRandomSource(3)).Garble("matrix reveal")
	if a != b {
		t.Errorf("same seed produced %q and %q", a, b)
	}
}

func TestGlyph_IsGarbledLetter(t *testing.T) {
	a := NewGenerator("", util.NewRandomSource(9))
	b := NewGenerator("", util.NewRandomSource(9))
	for i := 0; i < 10; i++ {
		if got, want := a.Glyph(), b.Garble("X"); got != want {
			t.Fatalf("glyph %d = %q, want %q", i, got, want)
		}
	}
}
