package stream

import (
	"github.com/lucasb-eyer/go-colorful"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/slides/v1"
)

const (
	fontFamily      = "Arial"
	textStyleFields = "fontFamily,fontSize,foregroundColor,bold"
	lineSpacing     = 115
)

// TextElement describes one text box on a slide. Positions and sizes are in
// points.
type TextElement struct {
	Text    string     `yaml:"text" json:"text" validate:"required"`
	X       float64    `yaml:"x" json:"x"`
	Y       float64    `yaml:"y" json:"y"`
	W       float64    `yaml:"w" json:"w" validate:"gt=0"`
	H       float64    `yaml:"h" json:"h" validate:"gt=0"`
	Size    float64    `yaml:"size" json:"size" validate:"gt=0"`
	Color   ColourSpec `yaml:"color" json:"color"`
	Bold    bool       `yaml:"bold,omitempty" json:"bold,omitempty"`
	Animate string     `yaml:"animate,omitempty" json:"animate,omitempty" validate:"omitempty,oneof=matrix"`
}

// Animated reports whether the element uses the matrix reveal.
func (e TextElement) Animated() bool {
	return e.Animate == "matrix"
}

// BuildTextBox returns the requests creating a text box for el: the shape,
// its text, a text style over the whole text and a paragraph style.
func BuildTextBox(pageID, elementID string, el TextElement, colour colorful.Color) []*slides.Request {
	return BuildTextBoxWithText(pageID, elementID, el, colour, el.Text)
}

// BuildTextBoxWithText is BuildTextBox with text replacing el.Text.
func BuildTextBoxWithText(pageID, elementID string, el TextElement, colour colorful.Color, text string) []*slides.Request {
	return []*slides.Request{
		CreateTextBox(pageID, elementID, el.X, el.Y, el.W, el.H),
		InsertText(elementID, text),
		UpdateTextStyle(elementID, el.Size, el.Bold, colour, nil),
		{
			UpdateParagraphStyle: &slides.UpdateParagraphStyleRequest{
				ObjectId: elementID,
				Style: &slides.ParagraphStyle{
					LineSpacing: lineSpacing,
					Alignment:   "START",
				},
				Fields: "lineSpacing,alignment",
			},
		},
	}
}

// CreateTextBox creates an empty text box; all values are in points.
func CreateTextBox(pageID, objectID string, x, y, w, h float64) *slides.Request {
	return &slides.Request{
		CreateShape: &slides.CreateShapeRequest{
			ObjectId:  objectID,
			ShapeType: "TEXT_BOX",
			ElementProperties: &slides.PageElementProperties{
				PageObjectId: pageID,
				Size: &slides.Size{
					Width:  &slides.Dimension{Magnitude: Pt(w), Unit: "EMU"},
					Height: &slides.Dimension{Magnitude: Pt(h), Unit: "EMU"},
				},
				Transform: transform(x, y),
			},
		},
	}
}

func transform(x, y float64) *slides.AffineTransform {
	return &slides.AffineTransform{
		ScaleX:          1,
		ScaleY:          1,
		TranslateX:      Pt(x),
		TranslateY:      Pt(y),
		Unit:            "EMU",
		ForceSendFields: []string{"TranslateX", "TranslateY"},
	}
}

// InsertText inserts text at the start of objectID.
func InsertText(objectID, text string) *slides.Request {
	return &slides.Request{
		InsertText: &slides.InsertTextRequest{
			ObjectId:        objectID,
			Text:            text,
			InsertionIndex:  0,
			ForceSendFields: []string{"InsertionIndex"},
		},
	}
}

// DeleteAllText clears the text of objectID.
func DeleteAllText(objectID string) *slides.Request {
	return &slides.Request{
		DeleteText: &slides.DeleteTextRequest{
			ObjectId:  objectID,
			TextRange: &slides.Range{Type: "ALL"},
		},
	}
}

// FixedRange covers characters [start, end).
func FixedRange(start, end int) *slides.Range {
	return &slides.Range{
		Type:       "FIXED_RANGE",
		StartIndex: googleapi.Int64(int64(start)),
		EndIndex:   googleapi.Int64(int64(end)),
	}
}

// UpdateTextStyle sets font, size, weight and colour over rng, or over the
// whole text when rng is nil.
func UpdateTextStyle(objectID string, size float64, bold bool, colour colorful.Color, rng *slides.Range) *slides.Request {
	if rng == nil {
		rng = &slides.Range{Type: "ALL"}
	}
	return &slides.Request{
		UpdateTextStyle: &slides.UpdateTextStyleRequest{
			ObjectId: objectID,
			Style: &slides.TextStyle{
				FontFamily: fontFamily,
				FontSize:   &slides.Dimension{Magnitude: size, Unit: "PT"},
				ForegroundColor: &slides.OptionalColor{
					OpaqueColor: &slides.OpaqueColor{RgbColor: RgbColor(colour)},
				},
				Bold:            bold,
				ForceSendFields: []string{"Bold"},
			},
			TextRange: rng,
			Fields:    textStyleFields,
		},
	}
}

// MoveTo places objectID at an absolute position in points.
func MoveTo(objectID string, x, y float64) *slides.Request {
	return &slides.Request{
		UpdatePageElementTransform: &slides.UpdatePageElementTransformRequest{
			ObjectId:  objectID,
			ApplyMode: "ABSOLUTE",
			Transform: transform(x, y),
		},
	}
}

// DeleteObject removes a page or page element.
func DeleteObject(objectID string) *slides.Request {
	return &slides.Request{
		DeleteObject: &slides.DeleteObjectRequest{ObjectId: objectID},
	}
}

// SetBackground fills the background of pageID with colour.
func SetBackground(pageID string, colour colorful.Color) *slides.Request {
	return &slides.Request{
		UpdatePageProperties: &slides.UpdatePagePropertiesRequest{
			ObjectId: pageID,
			PageProperties: &slides.PageProperties{
				PageBackgroundFill: &slides.PageBackgroundFill{
					SolidFill: &slides.SolidFill{
						Color: &slides.OpaqueColor{RgbColor: RgbColor(colour)},
					},
				},
			},
			Fields: "pageBackgroundFill",
		},
	}
}

// CreateSlide inserts a slide with a predefined layout at index.
func CreateSlide(objectID string, index int, layout string) *slides.Request {
	return &slides.Request{
		CreateSlide: &slides.CreateSlideRequest{
			ObjectId:             objectID,
			InsertionIndex:       int64(index),
			SlideLayoutReference: &slides.LayoutReference{PredefinedLayout: layout},
			ForceSendFields:      []string{"InsertionIndex"},
		},
	}
}
