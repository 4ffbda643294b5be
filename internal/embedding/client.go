package embedding

import (
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config selects the OpenAI-compatible endpoint used for embeddings and generation.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client. A base URL pointing at a local
// encoder server needs no real key, but one must still be configured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	// Rate limits are retried by Embedder with its own schedule.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client, model: cfg.Model}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., answer generation).
func (c *Client) Client() *openai.Client {
	return c.client
}

// Model returns the embedding model name.
func (c *Client) Model() string {
	return c.model
}
