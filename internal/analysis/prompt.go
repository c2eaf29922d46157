package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aerae/accelerator/internal/document"
)

const riskSystemPrompt = `You are an AI-risk analyst. You will receive:
1. A JSON object describing a software project (code metadata, optional PDF analysis, etc.).
2. A list of organisational AI-ethics / compliance policies.

Analyse the project against the policies and return a JSON object with a single
key "risks" whose value is an array of risk objects. Each risk object MUST have
exactly three fields:
  - "category" - a short risk category label (e.g. "Data Privacy", "Bias", "Security").
  - "severity" - one of "low", "medium", "high", or "critical".
  - "reason" - a concise explanation of why this risk exists.

Return ONLY valid JSON. No markdown, no extra keys.
`

// BuildProjectDescription is the text embedded to find the policies relevant to a project.
func BuildProjectDescription(repositoryURL string, doc *document.Analysis, fileCount int, secretCount *int) string {
	purpose := "Not specified"
	if doc != nil && strings.TrimSpace(doc.ProjectPurpose) != "" {
		purpose = doc.ProjectPurpose
	}
	secrets := "unknown"
	if secretCount != nil {
		secrets = fmt.Sprintf("%d", *secretCount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", repositoryURL)
	fmt.Fprintf(&b, "Project purpose: %s\n", purpose)
	if doc != nil && len(doc.DataTypesUsed) > 0 {
		fmt.Fprintf(&b, "Data types used: %s\n", strings.Join(doc.DataTypesUsed, ", "))
	}
	fmt.Fprintf(&b, "Files: %d\n", fileCount)
	fmt.Fprintf(&b, "Secrets found: %s", secrets)
	return b.String()
}

func buildUserContent(project map[string]any, policies []string) (string, error) {
	projectJSON, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding project context: %w", err)
	}

	lines := make([]string, 0, len(policies))
	for _, p := range policies {
		lines = append(lines, "- "+p)
	}

	return "## Project context\n```json\n" + string(projectJSON) + "\n```\n\n## Applicable policies\n" + strings.Join(lines, "\n"), nil
}
