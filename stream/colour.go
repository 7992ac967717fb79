package stream

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"google.golang.org/api/slides/v1"
)

// Colours used by the matrix reveal.
var (
	Black       = colorful.Color{R: 0, G: 0, B: 0}
	MatrixGreen = colorful.Color{R: 0, G: 0.8, B: 0.2}
	FlashGreen  = colorful.Color{R: 0.3, G: 1.0, B: 0.3}
)

// Palette is the built-in set of named colours, consulted after the theme.
var Palette = map[string]colorful.Color{
	"primary":     {R: 0.2, G: 0.4, B: 0.8},
	"success":     {R: 0.2, G: 0.7, B: 0.3},
	"warning":     {R: 0.9, G: 0.6, B: 0.1},
	"danger":      {R: 0.8, G: 0.2, B: 0.2},
	"dark":        {R: 0.2, G: 0.2, B: 0.2},
	"light":       {R: 0.95, G: 0.95, B: 0.95},
	"white":       {R: 1, G: 1, B: 1},
	"black":       Black,
	"darkBlue":    {R: 0.05, G: 0.1, B: 0.25},
	"matrixGreen": MatrixGreen,
	"flashGreen":  FlashGreen,
}

// RGB is a colour triple as it appears in slide descriptions, each component
// in [0,1].
type RGB struct {
	Red   float64 `yaml:"red" json:"red" validate:"gte=0,lte=1"`
	Green float64 `yaml:"green" json:"green" validate:"gte=0,lte=1"`
	Blue  float64 `yaml:"blue" json:"blue" validate:"gte=0,lte=1"`
}

// Colour converts the triple to a colorful.Color.
func (c RGB) Colour() colorful.Color {
	return colorful.Color{R: c.Red, G: c.Green, B: c.Blue}
}

// Theme maps symbolic names to colours.
type Theme map[string]colorful.Color

// ColourSpec is either an explicit RGB triple or a name. Names starting with
// '#' are hex colours, anything else is looked up in the theme and palette.
type ColourSpec struct {
	RGB  *RGB
	Name string
}

// Named returns a ColourSpec referring to name.
func Named(name string) ColourSpec {
	return ColourSpec{Name: name}
}

// Explicit returns a ColourSpec holding c.
func Explicit(c colorful.Color) ColourSpec {
	return ColourSpec{RGB: &RGB{Red: c.R, Green: c.G, Blue: c.B}}
}

// IsZero reports whether nothing was specified.
func (s ColourSpec) IsZero() bool {
	return s.RGB == nil && s.Name == ""
}

func (s ColourSpec) String() string {
	if s.RGB != nil {
		return fmt.Sprintf("rgb(%g,%g,%g)", s.RGB.Red, s.RGB.Green, s.RGB.Blue)
	}
	return s.Name
}

// UnmarshalYAML accepts either a scalar name or a red/green/blue mapping.
func (s *ColourSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		*s = ColourSpec{Name: strings.TrimSpace(name)}
		return nil
	}
	var rgb RGB
	if err := unmarshal(&rgb); err != nil {
		return fmt.Errorf("colour must be a name or a red/green/blue mapping: %w", err)
	}
	*s = ColourSpec{RGB: &rgb}
	return nil
}

// MarshalYAML writes the spec back in the form it was read.
func (s ColourSpec) MarshalYAML() (interface{}, error) {
	if s.RGB != nil {
		return s.RGB, nil
	}
	return s.Name, nil
}

// ResolveColour turns spec into a concrete colour. Explicit triples are
// returned unchanged, names are looked up in theme first, then in Palette.
func ResolveColour(spec ColourSpec, theme Theme) (colorful.Color, error) {
	if spec.RGB != nil {
		return spec.RGB.Colour(), nil
	}
	if strings.HasPrefix(spec.Name, "#") {
		c, err := colorful.Hex(spec.Name)
		if err != nil {
			return colorful.Color{}, &ConfigError{Msg: fmt.Sprintf("invalid hex colour %q", spec.Name)}
		}
		return c, nil
	}
	if c, ok := theme[spec.Name]; ok {
		return c, nil
	}
	if c, ok := Palette[spec.Name]; ok {
		return c, nil
	}
	return colorful.Color{}, &ConfigError{Msg: fmt.Sprintf("unknown colour %q", spec.Name)}
}

// RgbColor converts c into the API representation. Zero components are sent
// explicitly so black is not mistaken for an unset colour.
func RgbColor(c colorful.Color) *slides.RgbColor {
	return &slides.RgbColor{
		Red:             c.R,
		Green:           c.G,
		Blue:            c.B,
		ForceSendFields: []string{"Red", "Green", "Blue"},
	}
}

// ColourFromAPI converts an API colour back; nil means black.
func ColourFromAPI(c *slides.RgbColor) colorful.Color {
	if c == nil {
		return Black
	}
	return colorful.Color{R: c.Red, G: c.Green, B: c.Blue}
}
