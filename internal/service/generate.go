package service

import (
	"context"

	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/pkg/log"
)

// GenerateService answers free-form prompts, either through the provider fallback or on one
// named provider.
type GenerateService struct {
	fallback  *llm.Fallback
	providers map[string]llm.Provider
	logger    *log.StructuredLogger
}

func NewGenerateService(primary, secondary llm.Provider) *GenerateService {
	return &GenerateService{
		fallback: llm.NewFallback("generate content", primary, secondary),
		providers: map[string]llm.Provider{
			primary.Name():   primary,
			secondary.Name(): secondary,
		},
		logger: log.NewDebugLogger("generate_service"),
	}
}

func (gs *GenerateService) Generate(ctx context.Context, prompt string) (*llm.Result, error) {
	tracer := gs.logger.WithContext(ctx).Operation("generate").Build()

	res, err := gs.fallback.Generate(ctx, llm.Request{User: prompt}, nil)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithString("source", res.Provider).WithBool("fallback_used", res.FallbackUsed).Log()
	return res, nil
}

// GenerateWith sends the prompt to the named provider only.
func (gs *GenerateService) GenerateWith(ctx context.Context, provider, prompt string) (string, error) {
	tracer := gs.logger.WithContext(ctx).Operation("generate_with").WithString("provider", provider).Build()

	p, ok := gs.providers[provider]
	if !ok {
		return "", NewErrProviderNotFound(provider)
	}

	text, err := p.Complete(ctx, llm.Request{User: prompt})
	if err != nil {
		tracer.Error(err).Log()
		return "", NewErrGenerationFailed(llm.DisplayName(provider), err)
	}

	tracer.Success().Log()
	return text, nil
}
