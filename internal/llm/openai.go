package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aerae/accelerator/internal/config"
	"github.com/aerae/accelerator/pkg/metrics"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider talks to any OpenAI compatible chat endpoint. Azure OpenAI and Gemini are
// both reached through it.
type OpenAIProvider struct {
	name           string
	client         *openai.Client
	model          string
	embeddingModel string
}

var (
	_ Provider = (*OpenAIProvider)(nil)
	_ Embedder = (*OpenAIProvider)(nil)
)

func NewOpenAIProvider(name string, clientCfg openai.ClientConfig, model, embeddingModel string) *OpenAIProvider {
	return &OpenAIProvider{
		name:           name,
		client:         openai.NewClientWithConfig(clientCfg),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

// NewAzureProvider builds the Azure OpenAI provider. Model names are deployment names.
func NewAzureProvider(cfg *config.Config) *OpenAIProvider {
	c := openai.DefaultAzureConfig(cfg.LLM.AzureAPIKey, cfg.LLM.AzureEndpoint)
	c.APIVersion = cfg.LLM.AzureAPIVersion
	c.AzureModelMapperFunc = func(model string) string {
		return model
	}
	return NewOpenAIProvider(ProviderAzureOpenAI, c, cfg.LLM.AzureDeployment, cfg.LLM.AzureEmbeddingModel)
}

// NewGeminiProvider builds the Gemini provider on top of its OpenAI compatible endpoint.
func NewGeminiProvider(cfg *config.Config) *OpenAIProvider {
	c := openai.DefaultConfig(cfg.LLM.GeminiAPIKey)
	if cfg.LLM.GeminiBaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.LLM.GeminiBaseURL, "/")
	}
	return NewOpenAIProvider(ProviderGemini, c, cfg.LLM.GeminiModel, "")
}

// WithModel returns a copy of the provider using another chat model on the same client.
func (p *OpenAIProvider) WithModel(model string) *OpenAIProvider {
	cp := *p
	cp.model = model
	return &cp
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	logger := zap.S().Named("llm")

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	chatReq := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	logger.Debugw("sending chat completion", "provider", p.name, "model", p.model, "json_mode", req.JSONMode)

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		metrics.IncreaseLLMCallsMetric(p.name, "error")
		return "", fmt.Errorf("%s chat completion failed: %w", DisplayName(p.name), err)
	}
	if len(resp.Choices) == 0 {
		metrics.IncreaseLLMCallsMetric(p.name, "empty")
		return "", fmt.Errorf("%s returned no choices", DisplayName(p.name))
	}

	metrics.IncreaseLLMCallsMetric(p.name, "success")
	logger.Debugw("chat completion received", "provider", p.name, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.embeddingModel == "" {
		return nil, fmt.Errorf("%s has no embedding model configured", DisplayName(p.name))
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		metrics.IncreaseLLMCallsMetric(p.name, "error")
		return nil, fmt.Errorf("%s embedding failed: %w", DisplayName(p.name), err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.IncreaseLLMCallsMetric(p.name, "empty")
		return nil, errors.New("embedding response carried no vector")
	}

	metrics.IncreaseLLMCallsMetric(p.name, "success")
	return resp.Data[0].Embedding, nil
}
