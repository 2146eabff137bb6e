package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

type ContentHandler struct {
	contentService services.ContentService
}

func NewContentHandler(contentService services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// CreateThread godoc
// POST /api/threads
func (h *ContentHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	thread, err := h.contentService.CreateThread(r.Context(), user.ID, &req)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, thread)
}

// GetThread godoc
// GET /api/threads/{id}
func (h *ContentHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.contentService.GetThread(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, thread)
}

// CreatePost godoc
// POST /api/threads/{id}/posts
func (h *ContentHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	post, err := h.contentService.CreatePost(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, post)
}
