package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/export"
	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/review"
	"github.com/brandguard/brandguard/internal/storage"
)

// Handlers contains all HTTP request handlers.
type Handlers struct {
	reviews *review.Service
	exports *export.Service
	media   *storage.MediaStore
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(reviews *review.Service, exports *export.Service, media *storage.MediaStore, logger *zap.Logger) *Handlers {
	return &Handlers{
		reviews: reviews,
		exports: exports,
		media:   media,
		logger:  logger,
	}
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, review.ErrProjectNotFound),
		errors.Is(err, review.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrInvalidSourceKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type listQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (q *listQuery) normalize() {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type createProjectRequest struct {
	Name      string `json:"name" binding:"required"`
	ManagerID string `json:"manager_id" binding:"required"`
	ConfigID  string `json:"config_id" binding:"required"`
}

// CreateProject handles POST /api/projects
func (h *Handlers) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	project, err := h.reviews.CreateProject(c.Request.Context(), req.Name, req.ManagerID, req.ConfigID)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	ok(c, http.StatusCreated, project)
}

// ListProjects handles GET /api/projects
func (h *Handlers) ListProjects(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	q.normalize()

	projects, err := h.reviews.ListProjects(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, projects)
}

// GetProject handles GET /api/projects/:id
func (h *Handlers) GetProject(c *gin.Context) {
	project, err := h.reviews.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, project)
}

// ListSubmissions handles GET /api/projects/:id/submissions
func (h *Handlers) ListSubmissions(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	q.normalize()

	subs, err := h.reviews.ListSubmissions(c.Request.Context(), c.Param("id"), q.Limit, q.Offset)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, subs)
}

type createSubmissionRequest struct {
	ProjectID     string `json:"project_id" binding:"required"`
	EditorID      string `json:"editor_id" binding:"required"`
	SourceKind    string `json:"source_kind"`
	SourceLocator string `json:"source_locator" binding:"required"`
	ImageURL      bool   `json:"image_url"`
}

// CreateSubmission handles POST /api/submissions. Accepts either a multipart
// file upload (stored into the media directory, kind classified by MIME type)
// or a JSON body pointing at a URL.
func (h *Handlers) CreateSubmission(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		h.createSubmissionUpload(c)
		return
	}

	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	kind := models.SourceKind(req.SourceKind)
	if req.SourceKind == "" {
		kind = models.KindForURL(req.ImageURL)
	}

	sub, err := h.reviews.CreateSubmission(c.Request.Context(),
		req.ProjectID, req.EditorID, kind, req.SourceLocator)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusCreated, sub)
}

func (h *Handlers) createSubmissionUpload(c *gin.Context) {
	projectID := c.PostForm("project_id")
	editorID := c.PostForm("editor_id")
	if projectID == "" || editorID == "" {
		fail(c, http.StatusBadRequest, errors.New("project_id and editor_id are required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("missing media file: %w", err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	locator, err := h.media.SaveMedia(fileHeader.Filename, content)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	kind := models.KindForContentType(fileHeader.Header.Get("Content-Type"))
	sub, err := h.reviews.CreateSubmission(c.Request.Context(), projectID, editorID, kind, locator)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusCreated, sub)
}

// GetSubmission handles GET /api/submissions/:id
func (h *Handlers) GetSubmission(c *gin.Context) {
	sub, err := h.reviews.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, sub)
}

// AnalyzeSubmission handles POST /api/submissions/:id/analyze
func (h *Handlers) AnalyzeSubmission(c *gin.Context) {
	sub, err := h.reviews.ProcessSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, sub)
}

type reviewerRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
	Note       string `json:"note"`
}

// ApproveSubmission handles POST /api/submissions/:id/approve
func (h *Handlers) ApproveSubmission(c *gin.Context) {
	var req reviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	sub, err := h.reviews.Approve(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, sub)
}

// ReturnSubmission handles POST /api/submissions/:id/return
func (h *Handlers) ReturnSubmission(c *gin.Context) {
	var req reviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	sub, err := h.reviews.RequestChanges(c.Request.Context(), c.Param("id"), req.ReviewerID, req.Note)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, sub)
}

// RejectSubmission handles POST /api/submissions/:id/reject
func (h *Handlers) RejectSubmission(c *gin.Context) {
	var req reviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	sub, err := h.reviews.Reject(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusOK, sub)
}

type commentRequest struct {
	AuthorID string `json:"author_id" binding:"required"`
	Body     string `json:"body" binding:"required"`
}

// AddComment handles POST /api/submissions/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	comment, err := h.reviews.AddComment(c.Request.Context(), c.Param("id"), req.AuthorID, req.Body)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, http.StatusCreated, comment)
}

// ExportSubmission handles GET /api/submissions/:id/export?format=pdf|doc|xlsx
func (h *Handlers) ExportSubmission(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatPDF)))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	sub, err := h.reviews.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}

	artifact, err := h.exports.Export(c.Request.Context(), sub, format)
	if err != nil {
		h.logger.Error("Export failed",
			zap.String("submission_id", sub.ID),
			zap.String("format", string(format)),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
