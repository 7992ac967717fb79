// Package deck turns a slide deck description into presentation requests.
package deck

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/slidetx/stream"
)

// Mode is how a deck is applied to the presentation service.
type Mode int

const (
	// ModeNew creates a fresh presentation.
	ModeNew Mode = iota
	// ModeAppend inserts the slides after the existing ones.
	ModeAppend
	// ModeReplace deletes every existing slide first.
	ModeReplace
	// ModeUpdate rebuilds a single existing slide in place.
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeAppend:
		return "append"
	case ModeReplace:
		return "replace"
	case ModeUpdate:
		return "update-slide"
	}
	return "unknown"
}

// SlideTarget selects the slide to update: an index or "last".
type SlideTarget struct {
	Index int
	Last  bool
}

// Resolve returns the target index in a presentation of n slides.
func (t SlideTarget) Resolve(n int) int {
	if t.Last {
		return n - 1
	}
	return t.Index
}

func (t SlideTarget) String() string {
	if t.Last {
		return "last"
	}
	return fmt.Sprint(t.Index)
}

// UnmarshalYAML accepts an integer or the word "last".
func (t *SlideTarget) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var index int
	if err := unmarshal(&index); err == nil {
		*t = SlideTarget{Index: index}
		return nil
	}
	var word string
	if err := unmarshal(&word); err != nil || strings.TrimSpace(word) != "last" {
		return errors.New(`update slide must be an index or "last"`)
	}
	*t = SlideTarget{Last: true}
	return nil
}

// MarshalYAML writes the target back in the form it was read.
func (t SlideTarget) MarshalYAML() (interface{}, error) {
	if t.Last {
		return "last", nil
	}
	return t.Index, nil
}

// Theme holds symbolic colours for the deck.
type Theme struct {
	Colors map[string]stream.RGB `yaml:"colors,omitempty" json:"colors,omitempty" validate:"dive"`
}

// Slide is one slide of the deck.
type Slide struct {
	Background stream.ColourSpec    `yaml:"background,omitempty" json:"background,omitempty"`
	Elements   []stream.TextElement `yaml:"elements" json:"elements" validate:"dive"`
	Notes      string               `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Deck describes a whole presentation or a change to an existing one.
type Deck struct {
	Title          string       `yaml:"title" json:"title" validate:"required_without=PresentationID"`
	PresentationID string       `yaml:"presentationId,omitempty" json:"presentationId,omitempty"`
	Append         bool         `yaml:"append,omitempty" json:"append,omitempty"`
	UpdateSlide    *SlideTarget `yaml:"updateSlide,omitempty" json:"updateSlide,omitempty"`
	Theme          Theme        `yaml:"theme,omitempty" json:"theme,omitempty"`
	Slides         []Slide      `yaml:"slides" json:"slides" validate:"dive"`
}

// Mode derives the generation mode from which fields are set.
func (d *Deck) Mode() Mode {
	switch {
	case d.PresentationID == "":
		return ModeNew
	case d.UpdateSlide != nil:
		return ModeUpdate
	case d.Append:
		return ModeAppend
	}
	return ModeReplace
}

// Colours returns the theme as resolvable colours.
func (d *Deck) Colours() stream.Theme {
	theme := make(stream.Theme, len(d.Theme.Colors))
	for name, rgb := range d.Theme.Colors {
		theme[name] = rgb.Colour()
	}
	return theme
}

// Validate checks field constraints and that every colour resolves. All
// problems are reported together in one *stream.ConfigError.
func (d *Deck) Validate() error {
	var errs error

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = multierr.Append(errs, fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}

	theme := d.Colours()
	for i, s := range d.Slides {
		if !s.Background.IsZero() {
			if _, err := stream.ResolveColour(s.Background, theme); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("slides[%d].background: %w", i, err))
			}
		}
		for j, el := range s.Elements {
			if el.Color.IsZero() {
				errs = multierr.Append(errs, fmt.Errorf("slides[%d].elements[%d]: colour is required", i, j))
				continue
			}
			if _, err := stream.ResolveColour(el.Color, theme); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("slides[%d].elements[%d].color: %w", i, j, err))
			}
		}
	}

	if errs == nil {
		return nil
	}
	var msgs []string
	for _, err := range multierr.Errors(errs) {
		msgs = append(msgs, err.Error())
	}
	return &stream.ConfigError{Msg: strings.Join(msgs, "; ")}
}

// Parse decodes a YAML or JSON deck description and validates it.
func Parse(data []byte) (*Deck, error) {
	d := new(Deck)
	if err := yaml.UnmarshalStrict(data, d); err != nil {
		return nil, &stream.ConfigError{Msg: fmt.Sprintf("unable to decode deck: %v", err)}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Read parses a deck from r.
func Read(r io.Reader) (*Deck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read deck: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &stream.ConfigError{Msg: "empty deck description"}
	}
	return Parse(data)
}

// ReadFile parses the deck stored at path.
func ReadFile(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
