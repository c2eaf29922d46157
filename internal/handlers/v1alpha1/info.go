package v1alpha1

import (
	"net/http"

	"github.com/aerae/accelerator/pkg/version"
	"github.com/go-chi/render"
)

// (GET /api/v1/)
func (h *ServiceHandler) GetRoot(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, MessageReply{Message: "AERAE Accelerator API v1"})
}

// (GET /api/v1/info)
func (h *ServiceHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()
	_ = render.Render(w, r, InfoReply{
		GitCommit:   versionInfo.GitCommit,
		VersionName: versionInfo.GitVersion,
	})
}
