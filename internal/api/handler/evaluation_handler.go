package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"manion_server/internal/api/middleware"
	"manion_server/internal/app/service"
	"manion_server/internal/common"
	"manion_server/internal/domain/model"
)

type EvaluationHandler struct {
	evaluationService *service.EvaluationService
}

func NewEvaluationHandler(evaluationService *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluationService: evaluationService}
}

func (h *EvaluationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/evaluations", h.create)
}

type evaluationResponse struct {
	Success    bool              `json:"success"`
	Evaluation *model.Evaluation `json:"evaluation"`
}

func (h *EvaluationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user := middleware.OptionalUser(r)
	evaluation, err := h.evaluationService.Create(r.Context(), user, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, evaluationResponse{Success: true, Evaluation: evaluation})
}
