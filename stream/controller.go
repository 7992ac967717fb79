package stream

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/api/slides/v1"
)

type queued struct {
	animation Animation
	setup     *Frame
}

// Controller that manages the animations of one presentation. Animations run
// one after another in the order they were added, never concurrently.
type Controller struct {
	streamer       *Streamer
	presentationID string
	animations     []queued
	log            *zap.Logger
}

// NewController creates an instance of a Controller.
func NewController(streamer *Streamer, presentationID string, log *zap.Logger) *Controller {
	c := new(Controller)
	c.streamer = streamer
	c.presentationID = presentationID
	c.log = log
	return c
}

// Add queues a and returns its creation requests, which the caller must
// dispatch before Run. Observers see the creation frame when Run reaches a.
func (c *Controller) Add(a Animation) []*slides.Request {
	f := a.Setup()
	c.animations = append(c.animations, queued{animation: a, setup: f})
	return f.Requests
}

// Len returns the number of queued animations.
func (c *Controller) Len() int {
	return len(c.animations)
}

// Run plays the frames of every queued animation. The first failure stops
// all remaining animations.
func (c *Controller) Run(ctx context.Context) error {
	for i, q := range c.animations {
		a := q.animation
		c.streamer.notify(ctx, c.presentationID, q.setup)
		c.log.Info("Animating element", zap.String("element", a.ElementID()),
			zap.Int("frames", a.FrameCount()), zap.Int("n", i+1), zap.Int("of", len(c.animations)))
		if err := c.streamer.PlayFrames(ctx, c.presentationID, a); err != nil {
			return err
		}
	}
	c.animations = nil
	return nil
}
