package service

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/explainer"
	"github.com/sakif/stepwise/internal/model"
)

// Limits on solve input.
const (
	MaxTextLength    = 500
	MaxImageBytes    = 10 << 20
	DefaultImageMIME = "image/jpeg"
)

var allowedImageMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// SolveRequest is a solve as submitted by the client.
//
// For images Content is either bare base64 or a data URL
// ("data:image/png;base64,...").
type SolveRequest struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType,omitempty"`
}

// problem is a validated SolveRequest, ready to dispatch and store.
type problem struct {
	kind    model.ProblemType
	content string // stored verbatim: the text, or the bare base64 payload
	mime    *string
	request explainer.Request
}

// parseProblem validates req and builds the AI request. It never touches the
// network.
func parseProblem(req SolveRequest) (*problem, error) {
	kind := model.ProblemType(req.Type)
	if !kind.Valid() {
		return nil, apperror.ValidationFailed("type", "Invalid request type")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}

	if kind == model.ProblemTypeText {
		if utf8.RuneCountInString(req.Content) > MaxTextLength {
			return nil, apperror.ValidationFailed("content",
				fmt.Sprintf("problem text must be %d characters or less", MaxTextLength))
		}
		return &problem{
			kind:    kind,
			content: req.Content,
			request: explainer.Request{Prompt: TextPrompt(req.Content)},
		}, nil
	}

	payload, urlMIME := splitDataURL(strings.TrimSpace(req.Content))
	mime := strings.ToLower(strings.TrimSpace(req.MimeType))
	if mime == "" {
		mime = urlMIME
	}
	if mime == "" {
		mime = DefaultImageMIME
	}
	if !allowedImageMIME[mime] {
		return nil, apperror.ValidationFailed("mimeType",
			fmt.Sprintf("unsupported image type %q: use JPEG, PNG or WebP", mime))
	}
	if mime == "image/jpg" {
		mime = "image/jpeg"
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, imageTooLarge()
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperror.ValidationFailed("content", "image content is not valid base64")
	}
	if len(data) == 0 {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(data) > MaxImageBytes {
		return nil, imageTooLarge()
	}

	return &problem{
		kind:    kind,
		content: payload,
		mime:    &mime,
		request: explainer.Request{
			Prompt: ImagePrompt,
			Image:  &explainer.InlineImage{Data: data, MIMEType: mime},
		},
	}, nil
}

func imageTooLarge() error {
	return apperror.ValidationFailed("content",
		fmt.Sprintf("image must be %d MB or smaller", MaxImageBytes>>20))
}

// splitDataURL returns the base64 payload and declared mime of a
// "data:<mime>;base64,<payload>" URL. Anything else is returned as is with
// no mime.
func splitDataURL(s string) (payload, mime string) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return s, ""
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return s, ""
	}
	mediaType, _, _ := strings.Cut(meta, ";")
	return data, strings.ToLower(strings.TrimSpace(mediaType))
}
