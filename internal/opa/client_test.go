package opa

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("opa client", func() {
	var (
		server    *httptest.Server
		lastInput map[string]any
		handler   func(w http.ResponseWriter, r *http.Request)
	)

	BeforeEach(func() {
		lastInput = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			var req struct {
				Input map[string]any `json:"input"`
			}
			_ = json.Unmarshal(body, &req)
			lastInput = req.Input
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("wraps the payload and reads the decision", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.URL.Path).To(Equal("/v1/data/ethical_gates"))
			_, _ = w.Write([]byte(`{"result":{"allow":false,"deny_reasons":["critical risk: Security"]}}`))
		}

		c := NewClient(server.URL+"/v1/data/ethical_gates", time.Second)
		d, err := c.Evaluate(context.TODO(), map[string]any{"trust_score": 40})
		Expect(err).To(BeNil())
		Expect(d.Allow).To(BeFalse())
		Expect(d.DenyReasons).To(Equal([]string{"critical risk: Security"}))
		Expect(d.Unavailable).To(BeFalse())
		Expect(lastInput).To(HaveKeyWithValue("trust_score", BeNumerically("==", 40)))
	})

	It("defaults missing fields to a denial without reasons", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}

		d, err := NewClient(server.URL, time.Second).Evaluate(context.TODO(), map[string]any{})
		Expect(err).To(BeNil())
		Expect(d.Allow).To(BeFalse())
		Expect(d.DenyReasons).To(BeEmpty())
	})

	It("allows when the policy allows", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":{"allow":true,"deny_reasons":[]}}`))
		}

		d, err := NewClient(server.URL, time.Second).Evaluate(context.TODO(), map[string]any{})
		Expect(err).To(BeNil())
		Expect(d.Allow).To(BeTrue())
		Expect(d.String()).To(Equal("allow"))
	})

	It("fails on an error status", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"internal_error"}`))
		}

		_, err := NewClient(server.URL, time.Second).Evaluate(context.TODO(), map[string]any{})
		Expect(err).To(MatchError(ContainSubstring("status 500")))
	})

	It("fails on an undecodable body", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}

		_, err := NewClient(server.URL, time.Second).Evaluate(context.TODO(), map[string]any{})
		Expect(err).To(HaveOccurred())
	})

	It("degrades on a timeout", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}

		d, err := NewClient(server.URL, 50*time.Millisecond).Evaluate(context.TODO(), map[string]any{})
		Expect(err).To(BeNil())
		Expect(d.Unavailable).To(BeTrue())
	})

	It("degrades when nothing listens", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(BeNil())
		addr := l.Addr().String()
		Expect(l.Close()).To(Succeed())

		d, err := NewClient("http://"+addr+"/v1/data/ethical_gates", time.Second).Evaluate(context.TODO(), map[string]any{})
		Expect(err).To(BeNil())
		Expect(d.Allow).To(BeFalse())
		Expect(d.DenyReasons).To(Equal([]string{UnavailableReason}))
		Expect(d.Unavailable).To(BeTrue())
	})
})
