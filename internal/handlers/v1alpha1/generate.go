package v1alpha1

import (
	"net/http"

	"github.com/aerae/accelerator/internal/handlers/validator"
	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/service"
	"github.com/aerae/accelerator/pkg/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// (POST /api/v1/generate)
func (h *ServiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("generate_handler").WithContext(r.Context()).Operation("generate").Build()

	form, err := readGenerateForm(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.generateSrv.Generate(r.Context(), form.Prompt)
	if err != nil {
		logger.Error(err).Log()
		switch err.(type) {
		case *llm.ErrAllProvidersFailed:
			replyError(w, r, http.StatusBadGateway, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Success().WithString("source", res.Provider).Log()
	_ = render.Render(w, r, GenerateReply{
		Response:       res.Text,
		Source:         res.Provider,
		FallbackUsed:   res.FallbackUsed,
		FallbackReason: res.FallbackReason,
	})
}

// (POST /api/v1/generate/{provider})
func (h *ServiceHandler) GenerateWithProvider(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	logger := log.NewDebugLogger("generate_handler").
		WithContext(r.Context()).
		Operation("generate_with_provider").
		WithString("provider", provider).
		Build()

	form, err := readGenerateForm(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	text, err := h.generateSrv.GenerateWith(r.Context(), provider, form.Prompt)
	if err != nil {
		logger.Error(err).Log()
		switch err.(type) {
		case *service.ErrProviderNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrGenerationFailed:
			replyError(w, r, http.StatusBadGateway, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Success().Log()
	_ = render.Render(w, r, ProviderReply{Response: text, Source: provider})
}

func readGenerateForm(r *http.Request) (*GenerateForm, error) {
	form := &GenerateForm{}
	if err := render.DecodeJSON(r.Body, form); err != nil {
		return nil, validator.NewErrInvalidField("failed to decode request body: %v", err)
	}

	v := validator.NewValidator()
	v.Register(validator.NewGenerateValidationRules()...)
	if err := v.Struct(form); err != nil {
		return nil, err
	}
	return form, nil
}
