package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"manion_server/internal/app/service"
	"manion_server/internal/common"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// RegisterRoutes expects a router already gated by Authenticator and
// AdminOnly.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.stats)
	r.Get("/problems", h.listProblems)
	r.Get("/evaluations", h.listEvaluations)
	r.Delete("/problems/{problemID}", h.deleteProblem)
	r.Delete("/posts/{postID}", h.deletePost)
	r.Delete("/posts/{postID}/replies/{replyID}", h.deleteReply)
	r.Delete("/evaluations/{evaluationID}", h.deleteEvaluation)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.adminService.ListProblems(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *AdminHandler) listEvaluations(w http.ResponseWriter, r *http.Request) {
	evaluations, err := h.adminService.ListEvaluations(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, evaluations)
}

func (h *AdminHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeleteProblem(r.Context(), chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Problem deleted"})
}

func (h *AdminHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeletePost(r.Context(), chi.URLParam(r, "postID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Post deleted"})
}

func (h *AdminHandler) deleteReply(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeleteReply(r.Context(), chi.URLParam(r, "postID"), chi.URLParam(r, "replyID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Reply deleted"})
}

func (h *AdminHandler) deleteEvaluation(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeleteEvaluation(r.Context(), chi.URLParam(r, "evaluationID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Evaluation deleted"})
}
