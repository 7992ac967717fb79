package stream

// MirrorMessage base that indicates message type
type MirrorMessage struct {
	Type string `json:"type"`
}

// FrameMessage describes a frame that the backend has acknowledged.
type FrameMessage struct {
	MirrorMessage
	PresentationID string         `json:"presentationId,omitempty"`
	PageID         string         `json:"pageId"`
	ElementID      string         `json:"elementId"`
	Index          int            `json:"index"`
	Total          int            `json:"total"`
	Requests       int            `json:"requests"`
	Kinds          map[string]int `json:"kinds"`
}

// SequenceMessage marks the end of an animation sequence.
type SequenceMessage struct {
	MirrorMessage
	PresentationID string `json:"presentationId"`
	ElementID      string `json:"elementId"`
	Frames         int    `json:"frames"`
	Error          string `json:"error,omitempty"`
}
