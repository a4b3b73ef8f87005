package handler

import (
	"gift-market-wallet/internal/adapter/http/middleware"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JobsHandler handles job queue endpoints.
type JobsHandler struct {
	queue ports.JobQueue
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(queue ports.JobQueue) *JobsHandler {
	return &JobsHandler{queue: queue}
}

// Cancel handles POST /api/v1/jobs/:id/cancel. Only the owner's own pending
// jobs are cancellable.
func (h *JobsHandler) Cancel(c *gin.Context) {
	caller := middleware.AuthFromGin(c)
	if caller == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrValidation("invalid job id"))
		return
	}

	if err := h.queue.Cancel(c.Request.Context(), caller, jobID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"job_id": jobID, "status": "cancelled"})
}
