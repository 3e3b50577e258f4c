package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"manion_server/internal/api/middleware"
	"manion_server/internal/app/service"
	"manion_server/internal/common"
	"manion_server/internal/platform/config"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(problemService *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: problemService}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.upload)
	r.Get("/problem/{problemID}", h.getProblem)
}

type uploadResponse struct {
	Success   bool   `json:"success"`
	ProblemID string `json:"problemId"`
	Message   string `json:"message"`
}

func (h *ProblemHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.AppConfig.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	user := middleware.OptionalUser(r)
	problem, err := h.problemService.Upload(r.Context(), user, service.UploadInput{
		File:        file,
		Size:        header.Size,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Title:       r.FormValue("title"),
	})
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	common.RespondWithJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		ProblemID: problem.ID,
		Message:   "Image uploaded successfully, video generation started",
	})
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")

	problem, err := h.problemService.GetProblem(r.Context(), problemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}
