package openai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const codeInsufficientQuota = "insufficient_quota"

// Options configure the OpenAI SDK client shared by Generator and Embedder.
type Options struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible endpoint. Empty keeps the default.
	BaseURL string
}

// NewClient builds an SDK client with retries disabled: every call is
// attempted exactly once.
func NewClient(opts Options) (openai.Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return openai.Client{}, errors.New("openai api key is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}

	return openai.NewClient(reqOpts...), nil
}

func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == codeInsufficientQuota {
			return fmt.Errorf("%w: %s", ai.ErrQuotaExhausted, apiErr.Message)
		}
	}

	return err
}
