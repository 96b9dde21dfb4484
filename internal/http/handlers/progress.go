package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/completion-engine/internal/domain"
	response "github.com/yungbote/completion-engine/internal/http/response"
	"github.com/yungbote/completion-engine/internal/modules/progress"
	"github.com/yungbote/completion-engine/internal/platform/ctxutil"
)

// ProgressUsecases is the slice of the progress module the handlers call.
type ProgressUsecases interface {
	UpdateVideoProgress(ctx context.Context, in progress.UpdateVideoProgressInput) (progress.UpdateVideoProgressOutput, error)
	SubmitAssessment(ctx context.Context, in progress.SubmitAssessmentInput) (progress.AttemptResult, error)
	ListAttempts(ctx context.Context, learnerID, contentItemID uuid.UUID) ([]*types.AssessmentAttempt, error)
	GetCourseProgress(ctx context.Context, learnerID, courseID uuid.UUID) (progress.CourseProgress, error)
	Recalculate(ctx context.Context, enrollmentID uuid.UUID) (*progress.Summary, error)
}

type ProgressHandler struct {
	uc ProgressUsecases
}

func NewProgressHandler(uc ProgressUsecases) *ProgressHandler {
	return &ProgressHandler{uc: uc}
}

type videoProgressRequest struct {
	LastPositionSeconds   *int  `json:"last_position_seconds"`
	TotalWatchTimeSeconds *int  `json:"total_watch_time_seconds"`
	Completed             *bool `json:"completed"`
}

// PUT /api/content-items/:id/video-progress
func (h *ProgressHandler) UpdateVideoProgress(c *gin.Context) {
	learnerID, ok := learnerFromRequest(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id", "invalid_content_item_id")
	if !ok {
		return
	}
	var req videoProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.LastPositionSeconds == nil {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("last_position_seconds is required"))
		return
	}
	out, err := h.uc.UpdateVideoProgress(c.Request.Context(), progress.UpdateVideoProgressInput{
		LearnerID:             learnerID,
		ContentItemID:         itemID,
		LastPositionSeconds:   *req.LastPositionSeconds,
		TotalWatchTimeSeconds: req.TotalWatchTimeSeconds,
		Completed:             req.Completed,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

type submitAttemptRequest struct {
	Answers map[string]string `json:"answers"`
}

// POST /api/content-items/:id/attempts
func (h *ProgressHandler) SubmitAssessment(c *gin.Context) {
	learnerID, ok := learnerFromRequest(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id", "invalid_content_item_id")
	if !ok {
		return
	}
	var req submitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.uc.SubmitAssessment(c.Request.Context(), progress.SubmitAssessmentInput{
		LearnerID:     learnerID,
		ContentItemID: itemID,
		Answers:       req.Answers,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// GET /api/content-items/:id/attempts
func (h *ProgressHandler) ListAttempts(c *gin.Context) {
	learnerID, ok := learnerFromRequest(c)
	if !ok {
		return
	}
	itemID, ok := uuidParam(c, "id", "invalid_content_item_id")
	if !ok {
		return
	}
	rows, err := h.uc.ListAttempts(c.Request.Context(), learnerID, itemID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempts": rows})
}

// GET /api/courses/:id/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	learnerID, ok := learnerFromRequest(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	out, err := h.uc.GetCourseProgress(c.Request.Context(), learnerID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/enrollments/:id/recalculate
func (h *ProgressHandler) Recalculate(c *gin.Context) {
	enrollmentID, ok := uuidParam(c, "id", "invalid_enrollment_id")
	if !ok {
		return
	}
	out, err := h.uc.Recalculate(c.Request.Context(), enrollmentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

func learnerFromRequest(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("not authenticated"))
		return uuid.Nil, false
	}
	return rd.LearnerID, true
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, code, fmt.Errorf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
