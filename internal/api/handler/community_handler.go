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

type CommunityHandler struct {
	communityService *service.CommunityService
}

func NewCommunityHandler(communityService *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{communityService: communityService}
}

func (h *CommunityHandler) RegisterRoutes(r chi.Router) {
	r.Post("/posts", h.createPost)
	r.Get("/posts/{boardType}", h.listPosts)
	r.Post("/posts/{postID}/like", h.vote)
	r.Post("/posts/{postID}/reply", h.reply)
}

type postResponse struct {
	Success bool        `json:"success"`
	Post    *model.Post `json:"post"`
}

type replyResponse struct {
	Success bool         `json:"success"`
	Reply   *model.Reply `json:"reply"`
}

func (h *CommunityHandler) createPost(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user := middleware.OptionalUser(r)
	post, err := h.communityService.CreatePost(r.Context(), user, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, postResponse{Success: true, Post: post})
}

func (h *CommunityHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	board, ok := model.ParseBoardType(chi.URLParam(r, "boardType"))
	if !ok {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid board type")
		return
	}

	posts, err := h.communityService.ListPosts(r.Context(), board)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *CommunityHandler) vote(w http.ResponseWriter, r *http.Request) {
	var req service.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	post, err := h.communityService.Vote(r.Context(), chi.URLParam(r, "postID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, postResponse{Success: true, Post: post})
}

func (h *CommunityHandler) reply(w http.ResponseWriter, r *http.Request) {
	var req service.ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user := middleware.OptionalUser(r)
	reply, err := h.communityService.Reply(r.Context(), user, chi.URLParam(r, "postID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, replyResponse{Success: true, Reply: reply})
}
