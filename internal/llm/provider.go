package llm

import "context"

const (
	ProviderAzureOpenAI = "azure-openai"
	ProviderGemini      = "gemini"
)

var displayNames = map[string]string{
	ProviderAzureOpenAI: "Azure OpenAI",
	ProviderGemini:      "Gemini",
}

// DisplayName returns the human readable name of a provider id.
func DisplayName(provider string) string {
	if n, ok := displayNames[provider]; ok {
		return n
	}
	return provider
}

// Request is a single-turn chat prompt.
type Request struct {
	System string
	User   string
	// JSONMode asks the provider to constrain its output to a JSON object.
	JSONMode bool
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
