package gemini

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"google.golang.org/genai"
)

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// classifyError marks quota failures with ai.ErrQuotaExhausted and keeps
// everything else untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == statusResourceExhausted {
			return fmt.Errorf("%w: %s", ai.ErrQuotaExhausted, apiErr.Message)
		}
	}

	return err
}
