package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vidx/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conversion defaults, matching what mobile players accept everywhere.
const (
	defaultCRF          = 23
	defaultPreset       = "medium"
	defaultAudioBitrate = "128k"
)

// ConvertProcessor transcodes an uploaded container (typically MOV) to a
// streamable MP4. It shares the job table with the personalize step but
// does no synthesis.
type ConvertProcessor struct {
	deps Deps
}

// NewConvertProcessor creates the convert step processor.
func NewConvertProcessor(deps Deps) *ConvertProcessor {
	return &ConvertProcessor{deps: deps}
}

// Name implements StepProcessor.
func (p *ConvertProcessor) Name() string {
	return "convert"
}

// Process implements StepProcessor.
func (p *ConvertProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	payload, err := decodeConvertPayload(msg.Payload)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "vidx-convert-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	src := filepath.Join(workDir, "source"+filepath.Ext(payload.SourceKey))
	if err := p.downloadTo(ctx, payload.SourceKey, src); err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	if _, err := p.deps.Tool.Duration(ctx, src); err != nil {
		return fmt.Errorf("source is unusable: %w", err)
	}

	mediaCtx, cancel := context.WithTimeout(ctx, p.deps.Config.Timeouts.Media)
	defer cancel()

	out := filepath.Join(workDir, "converted.mp4")
	if err := p.deps.Tool.Transcode(mediaCtx, src, out, payload.CRF, payload.Preset, payload.AudioBitrate); err != nil {
		return err
	}

	f, err := os.Open(out)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := p.deps.Storage.PutObject(ctx, payload.OutputKey, f, info.Size(), "video/mp4"); err != nil {
		return fmt.Errorf("failed to upload converted video: %w", err)
	}

	query := `UPDATE jobs SET status = $1, archive_key = $2, updated_at = $3 WHERE id = $4`
	if _, err := p.deps.DB.ExecContext(ctx, query, models.StatusDone, payload.OutputKey, time.Now(), jobID); err != nil {
		return fmt.Errorf("failed to finish convert job: %w", err)
	}

	p.deps.Logger.Info("Conversion complete",
		zap.String("job_id", jobID.String()),
		zap.String("output_key", payload.OutputKey),
	)
	return nil
}

func decodeConvertPayload(raw map[string]interface{}) (models.ConvertPayload, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return models.ConvertPayload{}, fmt.Errorf("invalid convert payload: %w", err)
	}
	var payload models.ConvertPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.ConvertPayload{}, fmt.Errorf("invalid convert payload: %w", err)
	}
	if payload.SourceKey == "" || payload.OutputKey == "" {
		return models.ConvertPayload{}, fmt.Errorf("convert payload requires source_key and output_key")
	}
	if payload.CRF == 0 {
		payload.CRF = defaultCRF
	}
	if payload.Preset == "" {
		payload.Preset = defaultPreset
	}
	if payload.AudioBitrate == "" {
		payload.AudioBitrate = defaultAudioBitrate
	}
	return payload, nil
}

func (p *ConvertProcessor) downloadTo(ctx context.Context, key, dst string) error {
	obj, err := p.deps.Storage.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.ReadFrom(obj); err != nil {
		return err
	}
	return nil
}
