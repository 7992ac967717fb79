package stream

import (
	"encoding/json"

	"google.golang.org/api/slides/v1"
)

// SetupFrame is the index of the batch creating an animation's shapes.
const SetupFrame = -1

// Frame is one visual snapshot of an animated element, sent to the backend
// as a single batch.
type Frame struct {
	PageID    string
	ElementID string
	Index     int
	Total     int
	Requests  []*slides.Request
}

// NewFrame creates an empty Frame.
func NewFrame(pageID, elementID string, index, total int) *Frame {
	f := new(Frame)
	f.PageID = pageID
	f.ElementID = elementID
	f.Index = index
	f.Total = total
	return f
}

// Add appends requests to the frame.
func (f *Frame) Add(reqs ...*slides.Request) {
	f.Requests = append(f.Requests, reqs...)
}

// Final reports whether this is the cleanup frame of its sequence.
func (f *Frame) Final() bool {
	return f.Index == f.Total-1
}

// Count returns how many requests of a kind the frame holds. Kind is the
// JSON name of the request, e.g. "deleteObject".
func (f *Frame) Count(kind string) int {
	n := 0
	for _, r := range f.Requests {
		if RequestKind(r) == kind {
			n++
		}
	}
	return n
}

// Message summarises the frame for the mirror.
func (f *Frame) Message(presentationID string) FrameMessage {
	msg := FrameMessage{
		MirrorMessage:  MirrorMessage{Type: "frame"},
		PresentationID: presentationID,
		PageID:         f.PageID,
		ElementID:      f.ElementID,
		Index:          f.Index,
		Total:          f.Total,
		Requests:       len(f.Requests),
		Kinds:          make(map[string]int),
	}
	for _, r := range f.Requests {
		msg.Kinds[RequestKind(r)]++
	}
	return msg
}

// MarshalBinary converts a Frame into binary data.
func (f *Frame) MarshalBinary() (data []byte, err error) {
	return json.Marshal(f.Message(""))
}

// RequestKind names the populated member of r.
func RequestKind(r *slides.Request) string {
	switch {
	case r.CreateShape != nil:
		return "createShape"
	case r.CreateSlide != nil:
		return "createSlide"
	case r.InsertText != nil:
		return "insertText"
	case r.DeleteText != nil:
		return "deleteText"
	case r.UpdateTextStyle != nil:
		return "updateTextStyle"
	case r.UpdateParagraphStyle != nil:
		return "updateParagraphStyle"
	case r.UpdatePageElementTransform != nil:
		return "updatePageElementTransform"
	case r.DeleteObject != nil:
		return "deleteObject"
	case r.UpdatePageProperties != nil:
		return "updatePageProperties"
	}
	return "unknown"
}
