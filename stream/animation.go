package stream

// An Animation implements a way to render a specific animation as a series
// of frames. Frames must be calculated and applied in order.
type Animation interface {
	// ElementID is the page element the animation draws.
	ElementID() string
	// Setup returns the batch creating the animation's initial state.
	Setup() *Frame
	// FrameCount is the number of frames following Setup.
	FrameCount() int
	// CalculateFrame returns frame n, 0 <= n < FrameCount().
	CalculateFrame(n int) *Frame
}
