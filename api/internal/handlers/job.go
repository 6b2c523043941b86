package handlers

import (
	"net/http"

	"vidx/api/internal/models"
	"vidx/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobHandler handles job-related requests.
type JobHandler struct {
	service *service.JobService
	logger  *zap.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(service *service.JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// CreateJobRequest represents the request to create a personalization job.
type CreateJobRequest struct {
	InsertMode     string  `form:"insert_mode" binding:"omitempty"`
	NamePosition   string  `form:"name_position" binding:"omitempty"`
	TextTemplate   string  `form:"text_template" binding:"omitempty"`
	Lang           string  `form:"lang" binding:"omitempty"`
	TTSProvider    string  `form:"tts_provider" binding:"omitempty"`
	TTSVoiceID     string  `form:"tts_voice_id" binding:"omitempty"`
	TTSModelID     string  `form:"tts_model_id" binding:"omitempty"`
	TTSSpeed       float64 `form:"tts_speed" binding:"omitempty"`
	TTSCommand     string  `form:"tts_command" binding:"omitempty"`
	BatchTTS       bool    `form:"batch_tts" binding:"omitempty"`
	LipSync        bool    `form:"lip_sync" binding:"omitempty"`
	SilenceNoiseDB float64 `form:"silence_noise_db" binding:"omitempty"`
	SilenceMinDur  float64 `form:"silence_min_dur" binding:"omitempty"`
}

// CreateJobData contains the job creation data.
type CreateJobData struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// CreateJob handles POST /api/v1/jobs.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", err.Error())
		return
	}

	baseVideo, err := c.FormFile("video")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1003, "file upload failed", "base video is required")
		return
	}

	recipientList, err := c.FormFile("recipients")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1003, "file upload failed", "recipient list is required")
		return
	}

	// Optional; only elevenlabs cloning uses it.
	voiceSample, _ := c.FormFile("voice_sample")

	job, err := h.service.CreateJob(c.Request.Context(), service.CreateJobInput{
		InsertMode:     req.InsertMode,
		NamePosition:   req.NamePosition,
		TextTemplate:   req.TextTemplate,
		Lang:           req.Lang,
		TTSProvider:    req.TTSProvider,
		TTSVoiceID:     req.TTSVoiceID,
		TTSModelID:     req.TTSModelID,
		TTSSpeed:       req.TTSSpeed,
		TTSCommand:     req.TTSCommand,
		BatchTTS:       req.BatchTTS,
		LipSync:        req.LipSync,
		SilenceNoiseDB: req.SilenceNoiseDB,
		SilenceMinDur:  req.SilenceMinDur,
	}, baseVideo, recipientList, voiceSample)
	if err != nil {
		if service.IsValidationError(err) {
			h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", err.Error())
			return
		}
		h.logger.Error("Failed to create job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	h.respondSuccess(c, CreateJobData{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// GetJob handles GET /api/v1/jobs/:job_id.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	job, recipients, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if err == service.ErrJobNotFound {
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
			return
		}
		h.logger.Error("Failed to get job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	if recipients == nil {
		recipients = []models.JobRecipient{}
	}
	h.respondSuccess(c, map[string]interface{}{
		"job":        job,
		"recipients": recipients,
	})
}

// GetJobDownload handles GET /api/v1/jobs/:job_id/download.
func (h *JobHandler) GetJobDownload(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1001, "invalid parameters", "invalid job_id")
		return
	}

	url, err := h.service.DownloadURL(c.Request.Context(), jobID)
	if err != nil {
		switch err {
		case service.ErrJobNotFound:
			h.respondError(c, http.StatusNotFound, 1002, "job not found", "")
		case service.ErrJobNotReady:
			h.respondError(c, http.StatusBadRequest, 1005, "job is not finished", "")
		default:
			h.logger.Error("Failed to get download URL", zap.Error(err))
			h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		}
		return
	}

	h.respondSuccess(c, map[string]interface{}{
		"download_url": url,
		"expires_in":   3600,
	})
}

// CreateConvert handles POST /api/v1/jobs/convert.
func (h *JobHandler) CreateConvert(c *gin.Context) {
	source, err := c.FormFile("video")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, 1003, "file upload failed", "source video is required")
		return
	}

	job, err := h.service.CreateConvertJob(c.Request.Context(), source)
	if err != nil {
		h.logger.Error("Failed to create convert job", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, 1004, "internal server error", err.Error())
		return
	}

	h.respondSuccess(c, CreateJobData{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// respondSuccess sends a success response.
func (h *JobHandler) respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

// respondError sends an error response.
func (h *JobHandler) respondError(c *gin.Context, statusCode, code int, message, details string) {
	c.JSON(statusCode, gin.H{
		"code":    code,
		"message": message,
		"data":    details,
	})
}
