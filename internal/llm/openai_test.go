package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/aerae/accelerator/internal/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"
)

var _ = Describe("openai provider", Ordered, func() {
	var (
		server   *httptest.Server
		lastChat openai.ChatCompletionRequest
		status   int
	)

	BeforeAll(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if status != 0 {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
				return
			}

			switch r.URL.Path {
			case "/v1/chat/completions":
				_ = json.NewDecoder(r.Body).Decode(&lastChat)
				_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
					Choices: []openai.ChatCompletionChoice{
						{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"risks":[]}`}, FinishReason: openai.FinishReasonStop},
					},
				})
			case "/v1/embeddings":
				_ = json.NewEncoder(w).Encode(openai.EmbeddingResponse{
					Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterAll(func() {
		server.Close()
	})

	BeforeEach(func() {
		status = 0
		lastChat = openai.ChatCompletionRequest{}
	})

	newProvider := func() *llm.OpenAIProvider {
		cfg := openai.DefaultConfig("test-key")
		cfg.BaseURL = server.URL + "/v1"
		return llm.NewOpenAIProvider(llm.ProviderAzureOpenAI, cfg, "gpt-4o", "text-embedding-3-small-1")
	}

	It("sends system and user messages in JSON mode", func() {
		text, err := newProvider().Complete(context.TODO(), llm.Request{System: "sys", User: "usr", JSONMode: true})
		Expect(err).To(BeNil())
		Expect(text).To(Equal(`{"risks":[]}`))

		Expect(lastChat.Model).To(Equal("gpt-4o"))
		Expect(lastChat.Messages).To(HaveLen(2))
		Expect(lastChat.Messages[0].Role).To(Equal(openai.ChatMessageRoleSystem))
		Expect(lastChat.Messages[1].Content).To(Equal("usr"))
		Expect(lastChat.ResponseFormat).NotTo(BeNil())
		Expect(lastChat.ResponseFormat.Type).To(Equal(openai.ChatCompletionResponseFormatTypeJSONObject))
	})

	It("uses another model on the same client", func() {
		_, err := newProvider().WithModel("gpt-4o-mini").Complete(context.TODO(), llm.Request{User: "usr"})
		Expect(err).To(BeNil())
		Expect(lastChat.Model).To(Equal("gpt-4o-mini"))
		Expect(lastChat.Messages).To(HaveLen(1))
		Expect(lastChat.ResponseFormat).To(BeNil())
	})

	It("embeds text", func() {
		v, err := newProvider().Embed(context.TODO(), "project summary")
		Expect(err).To(BeNil())
		Expect(v).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("returns provider errors", func() {
		status = http.StatusInternalServerError

		_, err := newProvider().Complete(context.TODO(), llm.Request{User: "usr"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Azure OpenAI"))

		_, err = newProvider().Embed(context.TODO(), "x")
		Expect(err).To(HaveOccurred())
	})
})
