package gemini

import (
	"time"
)

// DefaultModel is the model the product was tuned against.
const DefaultModel = "gemini-2.0-flash-exp"

// Config holds the configuration for Gemini generation.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string
	// Model is the model id passed to GenerateContent.
	Model string
	// Timeout bounds one generation call. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
	// MaxConcurrent caps in-flight generation calls across all requests.
	MaxConcurrent int
	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string
}

// DefaultConfig returns the production defaults for apiKey.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:        apiKey,
		Model:         DefaultModel,
		Timeout:       2 * time.Minute,
		MaxConcurrent: 8,
	}
}
