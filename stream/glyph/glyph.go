package glyph

import (
	"strings"

	"github.com/matt-g-everett/slidetx/util"
)

// Katakana is the half-width katakana range used for falling glyphs.
const Katakana = "ｦｧｨｩｪｫｬｭｮｯｰｱｲｳｴｵｶｷｸｹｺｻｼｽｾｿﾀﾁﾂﾃﾄﾅﾆﾇﾈﾉﾊﾋﾌﾍﾎﾏﾐﾑﾒﾓﾔﾕﾖﾗﾘﾙﾚﾛﾜﾝ"

// Preserved characters survive garbling untouched.
const Preserved = ".,!?:;-'\"()[]"

// Generator picks random glyphs from an alphabet.
type Generator struct {
	alphabet []rune
	rnd      util.RandomSource
}

// NewGenerator creates a Generator over alphabet. An empty alphabet means
// Katakana.
func NewGenerator(alphabet string, rnd util.RandomSource) *Generator {
	if alphabet == "" {
		alphabet = Katakana
	}
	g := new(Generator)
	g.alphabet = []rune(alphabet)
	g.rnd = rnd
	return g
}

// Glyph returns one random glyph, a garbled single letter.
func (g *Generator) Glyph() string {
	return g.Garble("X")
}

func (g *Generator) pick() rune {
	return g.alphabet[g.rnd.Intn(len(g.alphabet))]
}

// Garble replaces every character except spaces and preserved punctuation
// with a random glyph. The result has the same number of characters as text.
func (g *Generator) Garble(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if IsPreserved(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(g.pick())
	}
	return b.String()
}

// IsPreserved reports whether Garble keeps r as is.
func IsPreserved(r rune) bool {
	return r == ' ' || strings.ContainsRune(Preserved, r)
}

// InAlphabet reports whether r can be produced by the generator.
func (g *Generator) InAlphabet(r rune) bool {
	for _, a := range g.alphabet {
		if a == r {
			return true
		}
	}
	return false
}
