package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"vidx/api/internal/config"
	"vidx/api/internal/database"
	"vidx/api/internal/models"
	"vidx/shared/recipients"
	"vidx/shared/storage"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when a job does not exist.
var ErrJobNotFound = errors.New("job not found")

// ValidationError marks a submission problem the caller can fix.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err came from submission validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrJobNotReady is returned when a download is requested before the job
// is done.
var ErrJobNotReady = errors.New("job is not finished")

// Publisher describes the minimal publishing behaviour the service needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// JobService owns job submission, lookup and download.
type JobService struct {
	db        *database.DB
	storage   storage.ObjectStorage
	publisher Publisher
	limits    config.UploadConfig
}

// NewJobService creates a new job service. Zero limits disable the
// corresponding size checks.
func NewJobService(db *database.DB, store storage.ObjectStorage, publisher Publisher, limits config.UploadConfig) *JobService {
	return &JobService{
		db:        db,
		storage:   store,
		publisher: publisher,
		limits:    limits,
	}
}

func checkSize(header *multipart.FileHeader, limit int64, what string) error {
	if limit > 0 && header.Size > limit {
		return validationErrorf("%s exceeds the %d byte limit", what, limit)
	}
	return nil
}

// CreateJobInput carries the validated submission options for a
// personalization job.
type CreateJobInput struct {
	InsertMode     string
	NamePosition   string
	TextTemplate   string
	Lang           string
	TTSProvider    string
	TTSVoiceID     string
	TTSModelID     string
	TTSSpeed       float64
	TTSCommand     string
	BatchTTS       bool
	LipSync        bool
	SilenceNoiseDB float64
	SilenceMinDur  float64
}

// validate rejects every submission the worker could not possibly run, so
// bad jobs never reach the queue.
func (in *CreateJobInput) validate(hasVoiceSample bool) error {
	switch in.InsertMode {
	case "essential", "advanced", "professional", "enterprise":
	case "":
		in.InsertMode = "essential"
	default:
		return validationErrorf("unknown insert mode %q", in.InsertMode)
	}

	switch in.NamePosition {
	case "start", "end":
	case "":
		in.NamePosition = "end"
	default:
		return validationErrorf("unknown name position %q", in.NamePosition)
	}

	switch in.TTSProvider {
	case "":
		in.TTSProvider = "gtts"
	case "gtts", "none":
	case "elevenlabs":
		if in.TTSVoiceID == "" && !hasVoiceSample {
			return validationErrorf("elevenlabs requires a voice id or a voice sample")
		}
	case "command":
		if strings.TrimSpace(in.TTSCommand) == "" {
			return validationErrorf("tts command is required for the command provider")
		}
		if !strings.Contains(in.TTSCommand, "{text}") || !strings.Contains(in.TTSCommand, "{out}") {
			return validationErrorf("tts command must contain the {text} and {out} placeholders")
		}
	default:
		return validationErrorf("unknown tts provider %q", in.TTSProvider)
	}

	if in.Lang == "" {
		in.Lang = "en"
	}
	if in.SilenceNoiseDB == 0 {
		in.SilenceNoiseDB = -35
	}
	if in.SilenceNoiseDB >= 0 {
		return validationErrorf("silence threshold must be negative dB, got %v", in.SilenceNoiseDB)
	}
	if in.SilenceMinDur == 0 {
		in.SilenceMinDur = 0.5
	}
	if in.SilenceMinDur < 0 {
		return validationErrorf("minimum silence duration must be positive, got %v", in.SilenceMinDur)
	}
	if in.TTSSpeed < 0 {
		return validationErrorf("tts speed must be positive, got %v", in.TTSSpeed)
	}

	return nil
}

// CreateJob validates and stores a personalization job, then queues it.
func (s *JobService) CreateJob(
	ctx context.Context,
	input CreateJobInput,
	baseVideo, recipientList, voiceSample *multipart.FileHeader,
) (*models.Job, error) {
	if baseVideo == nil {
		return nil, validationErrorf("base video is required")
	}
	if recipientList == nil {
		return nil, validationErrorf("recipient list is required")
	}
	if err := input.validate(voiceSample != nil); err != nil {
		return nil, err
	}
	if err := checkSize(baseVideo, s.limits.MaxVideoBytes, "base video"); err != nil {
		return nil, err
	}
	if err := checkSize(recipientList, s.limits.MaxListBytes, "recipient list"); err != nil {
		return nil, err
	}
	if voiceSample != nil {
		if err := checkSize(voiceSample, s.limits.MaxAudioBytes, "voice sample"); err != nil {
			return nil, err
		}
	}

	// Parse the list up front; a job with zero recipients never queues.
	listFile, err := recipientList.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open recipient list: %w", err)
	}
	recs, err := recipients.Parse(listFile)
	listFile.Close()
	if err != nil {
		return nil, validationErrorf("invalid recipient list: %v", err)
	}

	jobID := uuid.New()

	baseKey := fmt.Sprintf("jobs/%s/base%s", jobID, safeExt(baseVideo.Filename, ".mp4"))
	if err := s.saveUpload(ctx, baseVideo, baseKey); err != nil {
		return nil, fmt.Errorf("failed to store base video: %w", err)
	}

	listKey := fmt.Sprintf("jobs/%s/recipients.csv", jobID)
	if err := s.saveUpload(ctx, recipientList, listKey); err != nil {
		return nil, fmt.Errorf("failed to store recipient list: %w", err)
	}

	sampleKey := ""
	if voiceSample != nil {
		sampleKey = fmt.Sprintf("jobs/%s/voice_sample%s", jobID, safeExt(voiceSample.Filename, ".wav"))
		if err := s.saveUpload(ctx, voiceSample, sampleKey); err != nil {
			return nil, fmt.Errorf("failed to store voice sample: %w", err)
		}
	}

	now := time.Now()
	job := &models.Job{
		ID:             jobID,
		Status:         models.JobStatusQueued,
		Kind:           models.JobKindPersonalize,
		InsertMode:     input.InsertMode,
		NamePosition:   input.NamePosition,
		TextTemplate:   input.TextTemplate,
		Lang:           input.Lang,
		TTSProvider:    input.TTSProvider,
		TTSVoiceID:     input.TTSVoiceID,
		TTSModelID:     input.TTSModelID,
		TTSSpeed:       input.TTSSpeed,
		TTSCommand:     input.TTSCommand,
		BatchTTS:       input.BatchTTS,
		LipSync:        input.LipSync,
		SilenceNoiseDB: input.SilenceNoiseDB,
		SilenceMinDur:  input.SilenceMinDur,
		BaseVideoKey:   baseKey,
		RecipientsKey:  listKey,
		VoiceSampleKey: sampleKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO jobs (
			id, status, kind, insert_mode, name_position, text_template, lang,
			tts_provider, tts_voice_id, tts_model_id, tts_speed, tts_command,
			batch_tts, lip_sync, silence_noise_db, silence_min_dur,
			base_video_key, recipients_key, voice_sample_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Kind, job.InsertMode, job.NamePosition, job.TextTemplate, job.Lang,
		job.TTSProvider, job.TTSVoiceID, job.TTSModelID, job.TTSSpeed, job.TTSCommand,
		job.BatchTTS, job.LipSync, job.SilenceNoiseDB, job.SilenceMinDur,
		job.BaseVideoKey, job.RecipientsKey, job.VoiceSampleKey, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}

	if err := s.publish(ctx, job.ID, "personalize", map[string]interface{}{
		"recipients": len(recs),
	}); err != nil {
		return nil, err
	}

	return job, nil
}

// CreateConvertJob stores an uploaded container and queues a transcode.
func (s *JobService) CreateConvertJob(ctx context.Context, source *multipart.FileHeader) (*models.Job, error) {
	if source == nil {
		return nil, validationErrorf("source video is required")
	}
	if err := checkSize(source, s.limits.MaxVideoBytes, "source video"); err != nil {
		return nil, err
	}

	jobID := uuid.New()
	sourceKey := fmt.Sprintf("jobs/%s/source%s", jobID, safeExt(source.Filename, ".mov"))
	if err := s.saveUpload(ctx, source, sourceKey); err != nil {
		return nil, fmt.Errorf("failed to store source video: %w", err)
	}

	now := time.Now()
	job := &models.Job{
		ID:           jobID,
		Status:       models.JobStatusQueued,
		Kind:         models.JobKindConvert,
		BaseVideoKey: sourceKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO jobs (id, status, kind, base_video_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Kind, job.BaseVideoKey, job.CreatedAt, job.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}

	if err := s.publish(ctx, job.ID, "convert", map[string]interface{}{
		"source_key": sourceKey,
		"output_key": fmt.Sprintf("jobs/%s/converted.mp4", jobID),
	}); err != nil {
		return nil, err
	}

	return job, nil
}

func (s *JobService) publish(ctx context.Context, jobID uuid.UUID, step string, payload map[string]interface{}) error {
	message := map[string]interface{}{
		"job_id":     jobID.String(),
		"step":       step,
		"attempt":    1,
		"trace_id":   uuid.New().String(),
		"created_at": time.Now().Format(time.RFC3339),
		"payload":    payload,
	}
	if err := s.publisher.Publish(ctx, "job."+step, message); err != nil {
		return fmt.Errorf("failed to queue job: %w", err)
	}
	return nil
}

// GetJob returns a job with its recipient outcomes.
func (s *JobService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, []models.JobRecipient, error) {
	query := `
		SELECT id, status, error, kind, insert_mode, name_position, text_template, lang,
		       tts_provider, batch_tts, lip_sync, silence_noise_db, silence_min_dur,
		       archive_key, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`
	var job models.Job
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.Status, &job.Error, &job.Kind, &job.InsertMode, &job.NamePosition,
		&job.TextTemplate, &job.Lang, &job.TTSProvider, &job.BatchTTS, &job.LipSync,
		&job.SilenceNoiseDB, &job.SilenceMinDur, &job.ArchiveKey, &job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, ErrJobNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load job: %w", err)
	}

	recQuery := `
		SELECT job_id, idx, name, status, error, output_key
		FROM job_recipients
		WHERE job_id = $1
		ORDER BY idx
	`
	rows, err := s.db.QueryContext(ctx, recQuery, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	defer rows.Close()

	var recs []models.JobRecipient
	for rows.Next() {
		var rec models.JobRecipient
		if err := rows.Scan(&rec.JobID, &rec.Idx, &rec.Name, &rec.Status, &rec.Error, &rec.OutputKey); err != nil {
			return nil, nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read recipients: %w", err)
	}

	return &job, recs, nil
}

// DownloadURL returns a presigned URL for the job's packaged output.
func (s *JobService) DownloadURL(ctx context.Context, jobID uuid.UUID) (string, error) {
	job, _, err := s.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != models.JobStatusDone || job.ArchiveKey == nil {
		return "", ErrJobNotReady
	}
	return s.storage.PresignedGetURL(ctx, *job.ArchiveKey, time.Hour)
}

// safeExt returns a lowercase file extension, falling back when the
// upload name has none.
func safeExt(filename, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fallback
	}
	return ext
}

func (s *JobService) saveUpload(ctx context.Context, header *multipart.FileHeader, key string) error {
	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.storage.PutObject(ctx, key, f, header.Size, contentType)
}
