package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// Generator produces a completion for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaGenerator handles interactions with the Ollama API
type OllamaGenerator struct {
	Client     *api.Client
	Model      string
	MaxRetries int
}

// NewOllamaGenerator creates a client for host, or for OLLAMA_HOST when host is empty
func NewOllamaGenerator(host string, model string) (*OllamaGenerator, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	if model == "" {
		return nil, errors.New("no model given")
	}

	return &OllamaGenerator{
		Client:     api.NewClient(hostURL, http.DefaultClient),
		Model:      model,
		MaxRetries: 3,
	}, nil
}

// Generate generates a response, retrying failed requests with a growing delay
func (o *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var resp string
	var err error

	for retries := 0; retries <= o.MaxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(retries) * time.Second):
			}
		}

		resp, err = o.generate(ctx, prompt)
		if err == nil {
			return resp, nil
		}
	}

	return "", fmt.Errorf("failed to generate response after %d retries: %w", o.MaxRetries, err)
}

func (o *OllamaGenerator) generate(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 256,
		},
	}

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", err
	}

	return responseBuilder.String(), nil
}
