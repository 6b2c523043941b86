package models

// JobMessage represents a job message from RabbitMQ.
type JobMessage struct {
	JobID     string                 `json:"job_id"`
	Step      string                 `json:"step"`
	Attempt   int                    `json:"attempt"`
	TraceID   string                 `json:"trace_id"`
	CreatedAt string                 `json:"created_at"`
	Payload   map[string]interface{} `json:"payload"`
}

// ConvertPayload represents the payload for the convert step.
type ConvertPayload struct {
	SourceKey    string `json:"source_key"`
	OutputKey    string `json:"output_key"`
	CRF          int    `json:"crf"`
	Preset       string `json:"preset"`
	AudioBitrate string `json:"audio_bitrate"`
}
