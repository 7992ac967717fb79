// Package api talks to the presentation service.
package api

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"
)

// PresentationURL returns the edit URL of a presentation.
func PresentationURL(presentationID string) string {
	return fmt.Sprintf("https://docs.google.com/presentation/d/%s/edit", presentationID)
}

// Client is the Slides REST backend.
type Client struct {
	srv *slides.Service
}

// NewClient creates a Client sending requests through httpClient, which is
// expected to carry credentials.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	srv, err := slides.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create slides service: %w", err)
	}
	return &Client{srv: srv}, nil
}

// Get fetches a presentation with all its pages.
func (c *Client) Get(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	return c.srv.Presentations.Get(presentationID).Context(ctx).Do()
}

// Create creates an empty presentation. The service adds one default slide.
func (c *Client) Create(ctx context.Context, title string) (*slides.Presentation, error) {
	return c.srv.Presentations.Create(&slides.Presentation{Title: title}).Context(ctx).Do()
}

// BatchUpdate applies reqs atomically and waits for the response.
func (c *Client) BatchUpdate(ctx context.Context, presentationID string, reqs []*slides.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	_, err := c.srv.Presentations.BatchUpdate(presentationID,
		&slides.BatchUpdatePresentationRequest{Requests: reqs}).Context(ctx).Do()
	return err
}
