package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// Job kinds. Personalize jobs run the full pipeline; convert jobs only
// transcode an upload.
const (
	JobKindPersonalize = "personalize"
	JobKindConvert     = "convert"
)

// Job represents a row in the jobs table.
type Job struct {
	ID             uuid.UUID `json:"id"`
	Status         JobStatus `json:"status"`
	Error          *string   `json:"error,omitempty"`
	Kind           string    `json:"kind"`
	InsertMode     string    `json:"insert_mode"`
	NamePosition   string    `json:"name_position"`
	TextTemplate   string    `json:"text_template"`
	Lang           string    `json:"lang"`
	TTSProvider    string    `json:"tts_provider"`
	TTSVoiceID     string    `json:"-"`
	TTSModelID     string    `json:"tts_model_id,omitempty"`
	TTSSpeed       float64   `json:"tts_speed,omitempty"`
	TTSCommand     string    `json:"-"`
	BatchTTS       bool      `json:"batch_tts"`
	LipSync        bool      `json:"lip_sync"`
	SilenceNoiseDB float64   `json:"silence_noise_db"`
	SilenceMinDur  float64   `json:"silence_min_dur"`
	BaseVideoKey   string    `json:"-"`
	RecipientsKey  string    `json:"-"`
	VoiceSampleKey string    `json:"-"`
	ArchiveKey     *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// JobRecipient represents a row in the job_recipients table.
type JobRecipient struct {
	JobID     uuid.UUID `json:"-"`
	Idx       int       `json:"idx"`
	Name      string    `json:"name"`
	Status    JobStatus `json:"status"`
	Error     *string   `json:"error,omitempty"`
	OutputKey *string   `json:"-"`
}
