// Package gemini implements explainer.Explainer on Google's Gemini API via
// google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sakif/stepwise/internal/explainer"
)

var _ explainer.Explainer = (*Explainer)(nil)

// Explainer sends prompts to a Gemini model.
type Explainer struct {
	client  *genai.Client
	config  Config
	limiter *limiter
	logger  *slog.Logger
}

// New creates the genai client. No request is made until Generate.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Explainer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	logger.Info("gemini explainer ready",
		slog.String("model", cfg.Model),
		slog.Int("maxConcurrent", cfg.MaxConcurrent),
	)

	return &Explainer{
		client:  client,
		config:  cfg,
		limiter: newLimiter(cfg.MaxConcurrent),
		logger:  logger,
	}, nil
}

// Generate makes exactly one GenerateContent call. For image requests the
// image part precedes the prompt.
func (e *Explainer) Generate(ctx context.Context, req explainer.Request) (string, error) {
	release, err := e.limiter.acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("gemini: waiting for a call slot: %w", err)
	}
	defer release()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	var parts []*genai.Part
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	result, err := e.client.Models.GenerateContent(ctx, e.config.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generating content: %w", err)
	}

	text := result.Text()
	e.logger.Debug("gemini call finished",
		slog.String("model", e.config.Model),
		slog.Bool("image", req.Image != nil),
		slog.Int("chars", len(text)),
		slog.Duration("duration", time.Since(start)),
	)

	if strings.TrimSpace(text) == "" {
		return "", explainer.ErrEmptyResponse
	}
	return text, nil
}
