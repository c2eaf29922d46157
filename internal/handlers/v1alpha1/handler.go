package v1alpha1

import (
	"context"
	"net/http"

	"github.com/aerae/accelerator/internal/llm"
	"github.com/aerae/accelerator/internal/service"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/aerae/accelerator/pkg/requestid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type AssessmentService interface {
	Create(ctx context.Context, req service.CreateRequest) (*model.AssessmentJob, error)
	Get(ctx context.Context, id string) (*service.JobView, error)
}

type GenerateService interface {
	Generate(ctx context.Context, prompt string) (*llm.Result, error)
	GenerateWith(ctx context.Context, provider, prompt string) (string, error)
}

type ServiceHandler struct {
	assessmentSrv AssessmentService
	generateSrv   GenerateService
	uploadDir     string
	maxUploadSize int64
}

func NewServiceHandler(assessmentSrv AssessmentService, generateSrv GenerateService, uploadDir string, maxUploadSize int64) *ServiceHandler {
	return &ServiceHandler{
		assessmentSrv: assessmentSrv,
		generateSrv:   generateSrv,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
	}
}

// RegisterApi mounts the v1 routes under /api/v1.
func RegisterApi(router chi.Router, h *ServiceHandler) {
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.GetRoot)
		r.Get("/info", h.GetInfo)
		r.Post("/assess", h.CreateAssessment)
		r.Get("/assess/{job_id}", h.GetAssessment)
		r.Post("/generate", h.Generate)
		r.Post("/generate/{provider}", h.GenerateWithProvider)
	})
}

func replyError(w http.ResponseWriter, r *http.Request, status int, message string) {
	reply := ErrorReply{Message: message, status: status}
	if id := requestid.FromRequest(r); id != "" {
		reply.RequestID = &id
	}
	_ = render.Render(w, r, reply)
}
