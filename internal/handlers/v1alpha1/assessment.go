package v1alpha1

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aerae/accelerator/internal/handlers/validator"
	"github.com/aerae/accelerator/internal/service"
	"github.com/aerae/accelerator/internal/store/model"
	"github.com/aerae/accelerator/pkg/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const (
	formFieldURL = "github_url"
	formFieldPDF = "pdf"
)

// (POST /api/v1/assess)
func (h *ServiceHandler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	logger := log.NewDebugLogger("assessment_handler").
		WithContext(r.Context()).
		Operation("create_assessment").
		Build()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	form, doc, err := h.readAssessForm(r)
	if err != nil {
		logger.Error(err).Log()
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateAssessForm(form); err != nil {
		removeUpload(doc.path)
		logger.Error(err).Log()
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logger.Step("form_validated").WithString("github_url", form.GithubURL).WithBool("has_document", doc.path != "").Log()

	job, err := h.assessmentSrv.Create(r.Context(), service.CreateRequest{
		RepositoryURL: form.GithubURL,
		DocumentPath:  doc.path,
		DocumentName:  doc.name,
	})
	if err != nil {
		logger.Error(err).Log()
		switch err.(type) {
		case *service.ErrInvalidRequest:
			replyError(w, r, http.StatusBadRequest, err.Error())
		case *service.ErrServiceUnavailable:
			replyError(w, r, http.StatusServiceUnavailable, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to create assessment: %v", err))
		}
		return
	}

	logger.Success().WithUUID("job_id", job.ID).Log()
	_ = render.Render(w, r, JobReply{JobID: job.ID.String(), Status: string(job.Status)})
}

// (GET /api/v1/assess/{job_id})
func (h *ServiceHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")
	logger := log.NewDebugLogger("assessment_handler").
		WithContext(r.Context()).
		Operation("get_assessment").
		WithString("job_id", id).
		Build()

	view, err := h.assessmentSrv.Get(r.Context(), id)
	if err != nil {
		switch err.(type) {
		case *service.ErrJobNotFound:
			replyError(w, r, http.StatusNotFound, "Job not found")
		default:
			logger.Error(err).Log()
			replyError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to get assessment: %v", err))
		}
		return
	}

	reply := JobReply{JobID: view.ID.String(), Status: string(view.Status)}
	if view.Status == model.JobStatusProcessing {
		reply.status = http.StatusAccepted
	} else {
		reply.Result = view.Result
	}

	logger.Success().WithString("status", reply.Status).Log()
	_ = render.Render(w, r, reply)
}

// upload is an uploaded PDF stored in the upload dir. The zero value means no document.
type upload struct {
	path string
	name string
}

// readAssessForm accepts a multipart upload, a urlencoded form or a JSON body. An uploaded
// PDF is written to the upload dir.
func (h *ServiceHandler) readAssessForm(r *http.Request) (*AssessForm, upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, upload{}, fmt.Errorf("failed to read multipart form: %w", err)
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
		form := &AssessForm{GithubURL: strings.TrimSpace(r.FormValue(formFieldURL))}

		doc, err := h.saveUpload(r)
		if err != nil {
			return nil, upload{}, err
		}
		return form, doc, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, upload{}, fmt.Errorf("failed to read form: %w", err)
		}
		return &AssessForm{GithubURL: strings.TrimSpace(r.PostFormValue(formFieldURL))}, upload{}, nil
	default:
		form := &AssessForm{}
		if err := render.DecodeJSON(r.Body, form); err != nil {
			return nil, upload{}, fmt.Errorf("failed to decode request body: %w", err)
		}
		form.GithubURL = strings.TrimSpace(form.GithubURL)
		return form, upload{}, nil
	}
}

func (h *ServiceHandler) saveUpload(r *http.Request) (upload, error) {
	file, header, err := r.FormFile(formFieldPDF)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return upload{}, nil
		}
		return upload{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return upload{}, errors.New("only PDF files are accepted")
	}

	out, err := os.CreateTemp(h.uploadDir, "aerae_upload_*.pdf")
	if err != nil {
		return upload{}, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		removeUpload(out.Name())
		return upload{}, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	return upload{path: out.Name(), name: filepath.Base(header.Filename)}, nil
}

func removeUpload(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func validateAssessForm(form *AssessForm) error {
	v := validator.NewValidator()
	v.Register(validator.NewAssessmentValidationRules()...)
	return v.Struct(form)
}
