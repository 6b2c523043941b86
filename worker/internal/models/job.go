package models

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is the worker-side view of a personalization job row.
type Job struct {
	ID             uuid.UUID
	Status         string
	Error          *string
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
	BaseVideoKey   string
	RecipientsKey  string
	VoiceSampleKey string
	ArchiveKey     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobRecipient tracks one recipient's outcome within a job.
type JobRecipient struct {
	JobID     uuid.UUID
	Idx       int
	Name      string
	Status    string
	Error     *string
	OutputKey *string
}
