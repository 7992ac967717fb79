package stream

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/api/slides/v1"
)

// DefaultBatchSize bounds the number of requests in one dispatched chunk.
const DefaultBatchSize = 50

// Dispatcher applies a list of requests to a presentation and returns once
// the backend has acknowledged them.
type Dispatcher interface {
	BatchUpdate(ctx context.Context, presentationID string, reqs []*slides.Request) error
}

// Backend is the presentation service.
type Backend interface {
	Dispatcher
	Get(ctx context.Context, presentationID string) (*slides.Presentation, error)
	Create(ctx context.Context, title string) (*slides.Presentation, error)
}

// Observer is told about every frame the backend acknowledged and about the
// end of every animation sequence.
type Observer interface {
	FrameSent(ctx context.Context, presentationID string, f *Frame) error
	SequenceDone(ctx context.Context, presentationID, elementID string, frames int, err error)
}

// Streamer sends requests to the backend strictly in order, waiting for each
// batch before sending the next.
type Streamer struct {
	backend   Dispatcher
	log       *zap.Logger
	batchSize int
	observers []Observer
}

// NewStreamer creates an instance of a Streamer. A batchSize below one means
// DefaultBatchSize.
func NewStreamer(backend Dispatcher, batchSize int, log *zap.Logger) *Streamer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	s := new(Streamer)
	s.backend = backend
	s.batchSize = batchSize
	s.log = log
	return s
}

// AddObserver registers o for frame notifications.
func (s *Streamer) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// BatchSize returns the chunk size used by Dispatch.
func (s *Streamer) BatchSize() int {
	return s.batchSize
}

// Dispatch splits reqs into chunks of at most BatchSize requests and sends
// them one after another.
func (s *Streamer) Dispatch(ctx context.Context, presentationID string, reqs []*slides.Request) error {
	for start := 0; start < len(reqs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		if err := s.send(ctx, presentationID, reqs[start:end]); err != nil {
			return err
		}
		s.log.Debug("Batch applied", zap.String("presentation", presentationID),
			zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(reqs)))
	}
	return nil
}

func (s *Streamer) send(ctx context.Context, presentationID string, reqs []*slides.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.backend.BatchUpdate(ctx, presentationID, reqs); err != nil {
		return &BackendError{Op: "batchUpdate", PresentationID: presentationID, Err: err}
	}
	return nil
}

// SendFrame sends one frame as a single batch. A frame is one visual
// snapshot and is never split.
func (s *Streamer) SendFrame(ctx context.Context, presentationID string, f *Frame) error {
	if err := s.send(ctx, presentationID, f.Requests); err != nil {
		return err
	}
	s.notify(ctx, presentationID, f)
	return nil
}

func (s *Streamer) notify(ctx context.Context, presentationID string, f *Frame) {
	for _, o := range s.observers {
		if err := o.FrameSent(ctx, presentationID, f); err != nil {
			s.log.Warn("Frame observer failed", zap.String("element", f.ElementID),
				zap.Int("frame", f.Index), zap.Error(err))
		}
	}
}

// Setup dispatches the animation's creation batch.
func (s *Streamer) Setup(ctx context.Context, presentationID string, a Animation) error {
	f := a.Setup()
	if err := s.Dispatch(ctx, presentationID, f.Requests); err != nil {
		return err
	}
	s.notify(ctx, presentationID, f)
	return nil
}

// PlayFrames sends every frame of a, in order, each awaited. The first
// failure aborts the sequence; nothing is retried.
func (s *Streamer) PlayFrames(ctx context.Context, presentationID string, a Animation) (err error) {
	total := a.FrameCount()
	elementID := a.ElementID()
	sent := 0
	defer func() {
		for _, o := range s.observers {
			o.SequenceDone(ctx, presentationID, elementID, sent, err)
		}
	}()

	for n := 0; n < total; n++ {
		f := a.CalculateFrame(n)
		if err = s.SendFrame(ctx, presentationID, f); err != nil {
			s.log.Error("Animation aborted", zap.String("element", f.ElementID),
				zap.Int("frame", n), zap.Int("frames", total), zap.Error(err))
			return err
		}
		sent++
	}
	if total > 0 {
		s.log.Debug("Animation complete", zap.String("element", elementID), zap.Int("frames", total))
	}
	return nil
}

// Play runs a from start to finish: the creation batch, then every frame.
func (s *Streamer) Play(ctx context.Context, presentationID string, a Animation) error {
	if err := s.Setup(ctx, presentationID, a); err != nil {
		return err
	}
	return s.PlayFrames(ctx, presentationID, a)
}
