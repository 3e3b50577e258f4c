package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"manion_server/internal/app/service"
	"manion_server/internal/common"
	"manion_server/internal/domain/model"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/signin", h.signin)
	r.Post("/auth/google", h.oauthURL("google"))
	r.Post("/auth/kakao", h.oauthURL("kakao"))
}

type signupResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

type signinResponse struct {
	Success bool             `json:"success"`
	User    *model.User      `json:"user"`
	Session *service.Session `json:"session"`
}

type oauthResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, signupResponse{Success: true, User: user})
}

func (h *AuthHandler) signin(w http.ResponseWriter, r *http.Request) {
	var req service.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user, session, err := h.authService.Signin(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, signinResponse{Success: true, User: user, Session: session})
}

func (h *AuthHandler) oauthURL(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := h.authService.OAuthURL(provider)
		if err != nil {
			common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
			return
		}
		common.RespondWithJSON(w, http.StatusOK, oauthResponse{Success: true, URL: url})
	}
}
