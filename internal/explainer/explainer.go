// Package explainer is the boundary to the generative-AI text model.
//
// The contract is opaque text in, opaque text out. Nothing on this side of
// the boundary interprets the reply.
package explainer

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("explainer: model returned no text")

// InlineImage is an image sent alongside the prompt.
type InlineImage struct {
	Data     []byte
	MIMEType string
}

// Request is one generation call. Image is nil for text problems.
type Request struct {
	Prompt string
	Image  *InlineImage
}

// Explainer generates an explanation for a request.
type Explainer interface {
	Generate(ctx context.Context, req Request) (string, error)
}
