package judge

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed prompt.md
var promptTemplate string

const userMarker = "<!-- user -->"

const fallbackUserTemplate = "Job Description:\n{{JOB_DESCRIPTION}}\n\nCandidate Resume:\n{{RESUME_TEXT}}\n\n" +
	"Embedding Similarity Score: {{SIMILARITY}}\n\n{{FORMAT_INSTRUCTIONS}}\n\nJSON Response:"

// formatInstructions tells the model which document shape is accepted.
func formatInstructions() string {
	return fmt.Sprintf("The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n```json\n%s\n```",
		strings.TrimSpace(schemaText))
}

// buildPrompt returns the system instruction and the user prompt.
func buildPrompt(jobDescription, resumeText string, similarity float64) (string, string) {
	system, user, found := strings.Cut(promptTemplate, userMarker)
	if !found || strings.TrimSpace(user) == "" {
		system, user = "", fallbackUserTemplate
	}

	replacer := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", jobDescription,
		"{{RESUME_TEXT}}", resumeText,
		"{{SIMILARITY}}", strconv.FormatFloat(similarity, 'f', 4, 64),
		"{{FORMAT_INSTRUCTIONS}}", formatInstructions(),
	)

	return strings.TrimSpace(system), strings.TrimSpace(replacer.Replace(user))
}
