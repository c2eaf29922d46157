package v1alpha1_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/aerae/accelerator/internal/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("generate handler", func() {
	post := func(g *fakeGenerator, path, body string) (*httptest.ResponseRecorder, map[string]any) {
		router := newRouter(&fakeAssessments{}, g, "")
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(router, req)
	}

	It("returns the tagged fallback result", func() {
		reason := "Azure OpenAI unavailable: timeout"
		g := &fakeGenerator{result: &llm.Result{Text: "hi", Provider: llm.ProviderGemini, FallbackUsed: true, FallbackReason: &reason}}

		rec, body := post(g, "/api/v1/generate", `{"prompt":"hello"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(body).To(Equal(map[string]any{
			"response":        "hi",
			"source":          "gemini",
			"fallback_used":   true,
			"fallback_reason": reason,
		}))
	})

	It("answers 502 when both providers fail", func() {
		g := &fakeGenerator{err: &llm.ErrAllProvidersFailed{
			Task:          "generate content",
			PrimaryName:   llm.ProviderAzureOpenAI,
			SecondaryName: llm.ProviderGemini,
			Primary:       errors.New("timeout"),
			Secondary:     errors.New("quota"),
		}}

		rec, body := post(g, "/api/v1/generate", `{"prompt":"hello"}`)
		Expect(rec.Code).To(Equal(http.StatusBadGateway))
		Expect(body["message"]).To(ContainSubstring("Both providers failed"))
	})

	It("rejects a blank prompt", func() {
		rec, body := post(&fakeGenerator{}, "/api/v1/generate", `{"prompt":"  "}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(body["message"]).To(Equal("prompt must not be blank"))
	})

	It("targets a single provider", func() {
		rec, body := post(&fakeGenerator{}, "/api/v1/generate/gemini", `{"prompt":"hello"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(body).To(Equal(map[string]any{"response": "echo: hello", "source": "gemini"}))
	})

	It("answers 404 for an unknown provider", func() {
		rec, _ := post(&fakeGenerator{}, "/api/v1/generate/mistral", `{"prompt":"hello"}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("answers 502 when the provider fails", func() {
		rec, body := post(&fakeGenerator{err: errors.New("401 unauthorized")}, "/api/v1/generate/azure-openai", `{"prompt":"hello"}`)
		Expect(rec.Code).To(Equal(http.StatusBadGateway))
		Expect(body["message"]).To(ContainSubstring("Azure OpenAI generation failed"))
	})
})
