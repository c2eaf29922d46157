package v1alpha1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// AssessForm is the JSON form of an assessment submission.
type AssessForm struct {
	GithubURL string `json:"github_url" validate:"required,github_url"`
}

type GenerateForm struct {
	Prompt string `json:"prompt" validate:"required,prompt,max=32000"`
}

type MessageReply struct {
	Message string `json:"message"`
}

type HealthReply struct {
	Status string `json:"status"`
}

type InfoReply struct {
	GitCommit   string `json:"gitCommit"`
	VersionName string `json:"versionName"`
}

type ErrorReply struct {
	Message   string  `json:"message"`
	RequestID *string `json:"request_id,omitempty"`

	status int
}

// JobReply carries Result only once the job is terminal.
type JobReply struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`

	status int
}

type GenerateReply struct {
	Response       string  `json:"response"`
	Source         string  `json:"source"`
	FallbackUsed   bool    `json:"fallback_used"`
	FallbackReason *string `json:"fallback_reason"`
}

type ProviderReply struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

func (m MessageReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h HealthReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (i InfoReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

func (j JobReply) Render(w http.ResponseWriter, r *http.Request) error {
	if j.status != 0 {
		render.Status(r, j.status)
	}
	return nil
}

func (g GenerateReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (p ProviderReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
