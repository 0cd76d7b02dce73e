package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/models"
)

// IssueService defines the issue operations required by the HTTP handlers.
type IssueService interface {
	List(ctx context.Context) ([]models.Issue, error)
	Get(ctx context.Context, id string) (models.Issue, error)
	Create(ctx context.Context, draft models.IssueDraft) (models.Issue, error)
	Update(ctx context.Context, id string, draft models.IssueDraft) (models.Issue, error)
	Delete(ctx context.Context, id string) error
}

// IssueHandler serves the /api/issues resource.
type IssueHandler struct {
	IssueService IssueService
	Log          *zap.Logger
}

// List answers with every issue, newest first.
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	issues, err := h.IssueService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

// Create stores a new issue from the request body and answers 201.
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.IssueDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}

	issue, err := h.IssueService.Create(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

// Get answers with a single issue.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	issue, err := h.IssueService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// Update merges the fields present in the body over the stored issue and
// answers with the result.
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	var draft models.IssueDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}

	issue, err := h.IssueService.Update(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// Delete removes an issue.
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.IssueService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Issue deleted"})
}
