package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskspool/taskspool/internal/core"
)

type TaskRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	Priority      string     `json:"priority"`
	Category      string     `json:"category"`
	EstimatedTime string     `json:"estimated_time"`
	DueDate       *time.Time `json:"due_date"`
	MaxAttempts   int        `json:"max_attempts"`
}

type BatchRequest struct {
	Tasks []TaskRequest `json:"tasks" binding:"required"`
}

type EnqueueResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

type BatchEnqueueResponse struct {
	Success   bool     `json:"success"`
	JobIDs    []string `json:"job_ids"`
	TotalJobs int      `json:"total_jobs"`
	Message   string   `json:"message"`
}

type ListJobsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"max=100"`
	Offset int    `form:"offset"`
}

type JobHandler struct {
	queue *core.Queue
}

func NewJobHandler(queue *core.Queue) *JobHandler {
	return &JobHandler{queue: queue}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.queue.Enqueue(c.Request.Context(), req.toPayload(), req.MaxAttempts)
	if err != nil {
		abortWithQueueError(c, err)
		return
	}

	c.JSON(http.StatusCreated, EnqueueResponse{
		Success: true,
		JobID:   id,
		Message: fmt.Sprintf("task %q queued for printing", req.Title),
	})
}

func (h *JobHandler) CreateJobBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payloads := make([]core.TaskPayload, len(req.Tasks))
	for i, t := range req.Tasks {
		payloads[i] = t.toPayload()
	}

	ids, err := h.queue.EnqueueBatch(c.Request.Context(), payloads)
	if err != nil {
		abortWithQueueError(c, err)
		return
	}

	c.JSON(http.StatusCreated, BatchEnqueueResponse{
		Success:   true,
		JobIDs:    ids,
		TotalJobs: len(ids),
		Message:   fmt.Sprintf("%d tasks queued for printing", len(ids)),
	})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.queue.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var query ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := h.queue.ListJobs(c.Request.Context(), core.Status(query.Status), query.Limit, query.Offset)
	if err != nil {
		abortWithQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		abortWithQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *JobHandler) Health(c *gin.Context) {
	if err := h.queue.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}

func (r TaskRequest) toPayload() core.TaskPayload {
	return core.TaskPayload{
		Title:         r.Title,
		Description:   r.Description,
		Priority:      core.Priority(r.Priority),
		Category:      r.Category,
		EstimatedTime: r.EstimatedTime,
		DueDate:       r.DueDate,
	}
}

func abortWithQueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
