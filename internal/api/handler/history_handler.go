package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"manion_server/internal/api/middleware"
	"manion_server/internal/app/service"
	"manion_server/internal/common"
)

type HistoryHandler struct {
	historyService *service.HistoryService
}

func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// RegisterRoutes expects a router already gated by Authenticator.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.get)
	r.Delete("/history/problem/{problemID}", h.deleteProblem)
	r.Put("/history/problem/{problemID}/title", h.renameProblem)
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	history, err := h.historyService.Get(r.Context(), user)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, history)
}

func (h *HistoryHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.historyService.DeleteProblem(r.Context(), user, chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Problem removed from history"})
}

type renameRequest struct {
	Title string `json:"title"`
}

func (h *HistoryHandler) renameProblem(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.historyService.RenameProblem(r.Context(), user, chi.URLParam(r, "problemID"), req.Title); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Problem title updated"})
}
