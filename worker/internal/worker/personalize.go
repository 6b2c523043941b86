package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vidx/shared/cache"
	"vidx/shared/recipients"
	"vidx/shared/storage"
	"vidx/worker/internal/config"
	"vidx/worker/internal/database"
	"vidx/worker/internal/lipsync"
	"vidx/worker/internal/media"
	"vidx/worker/internal/metrics"
	"vidx/worker/internal/models"
	"vidx/worker/internal/silence"
	"vidx/worker/internal/splice"
	"vidx/worker/internal/tts"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps carries the shared dependencies handed to step processors.
type Deps struct {
	DB         *database.DB
	Storage    storage.ObjectStorage
	Config     *config.Config
	Logger     *zap.Logger
	Tool       *media.Tool
	NameCache  *cache.NameAudio
	CloneCache *cache.VoiceClone
}

// PersonalizeProcessor runs the full personalization pipeline for a job:
// name synthesis, loudness matching, splicing and packaging.
type PersonalizeProcessor struct {
	deps Deps
}

// NewPersonalizeProcessor creates the personalize step processor.
func NewPersonalizeProcessor(deps Deps) *PersonalizeProcessor {
	return &PersonalizeProcessor{deps: deps}
}

// Name implements StepProcessor.
func (p *PersonalizeProcessor) Name() string {
	return "personalize"
}

// recipientResult is the outcome of one recipient's pipeline run.
type recipientResult struct {
	rec       recipients.Recipient
	outputKey string
	localPath string
	err       error
}

// Process implements StepProcessor.
func (p *PersonalizeProcessor) Process(ctx context.Context, jobID uuid.UUID, _ models.JobMessage) error {
	started := time.Now()

	job, err := p.loadJob(ctx, jobID)
	if err != nil {
		return err
	}

	mode, err := splice.ParseMode(job.InsertMode)
	if err != nil {
		return err
	}
	pos, err := splice.ParsePosition(job.NamePosition)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "vidx-job-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	base := filepath.Join(workDir, "base"+filepath.Ext(job.BaseVideoKey))
	if err := p.download(ctx, job.BaseVideoKey, base); err != nil {
		return fmt.Errorf("failed to fetch base input: %w", err)
	}

	// Reject an unplayable base before any synthesis spends provider quota.
	if _, err := p.deps.Tool.Duration(ctx, base); err != nil {
		return fmt.Errorf("base input is unusable: %w", err)
	}

	recs, err := p.loadRecipients(ctx, job, workDir)
	if err != nil {
		return err
	}

	for i, rec := range recs {
		if err := p.insertRecipient(ctx, jobID, i, rec.Name); err != nil {
			return fmt.Errorf("failed to record recipient: %w", err)
		}
	}

	samplePath, sampleHash, err := p.fetchVoiceSample(ctx, job, workDir)
	if err != nil {
		return err
	}

	synth, err := p.buildSynthesizer(ctx, job, samplePath, sampleHash)
	if err != nil {
		return err
	}

	clips, clipErrs := p.prepareClips(ctx, job, mode, synth, sampleHash, recs, workDir)

	seg := silence.NewSegmenter(p.deps.Tool, job.SilenceNoiseDB, job.SilenceMinDur, p.deps.Logger)
	lip, err := p.buildLipSync(job)
	if err != nil {
		return err
	}
	engine := splice.NewEngine(p.deps.Tool, seg, lip, p.deps.Logger).
		WithMarkerMax(p.deps.Config.Processing.MarkerMaxDur)

	results := p.runRecipients(ctx, job, mode, pos, engine, base, recs, clips, clipErrs, workDir)

	succeeded := make([]recipientResult, 0, len(results))
	for i, res := range results {
		if res.err != nil {
			metrics.RecipientsProcessed.WithLabelValues("failed").Inc()
			errMsg := res.err.Error()
			if dbErr := p.updateRecipient(ctx, jobID, i, models.StatusFailed, &errMsg, nil); dbErr != nil {
				p.deps.Logger.Error("Failed to record recipient failure", zap.Error(dbErr))
			}
			p.deps.Logger.Warn("Recipient failed",
				zap.String("job_id", jobID.String()),
				zap.String("name", res.rec.Name),
				zap.Error(res.err),
			)
			continue
		}
		metrics.RecipientsProcessed.WithLabelValues("succeeded").Inc()
		if dbErr := p.updateRecipient(ctx, jobID, i, models.StatusDone, nil, &res.outputKey); dbErr != nil {
			p.deps.Logger.Error("Failed to record recipient result", zap.Error(dbErr))
		}
		succeeded = append(succeeded, res)
	}

	if len(succeeded) == 0 {
		metrics.JobsProcessed.WithLabelValues(string(mode), models.StatusFailed).Inc()
		return fmt.Errorf("all %d recipients failed", len(results))
	}

	namesTrack := ""
	if gap := p.deps.Config.Processing.NamesTrackGap; gap > 0 && len(succeeded) > 1 {
		track, trackErr := p.buildNamesTrack(ctx, succeeded, clips, gap, workDir)
		if trackErr != nil {
			p.deps.Logger.Warn("Failed to build names master track", zap.Error(trackErr))
		} else {
			namesTrack = track
		}
	}

	archiveKey, err := p.packageResults(ctx, jobID, succeeded, namesTrack, workDir)
	if err != nil {
		return err
	}

	if err := p.markJobDone(ctx, jobID, archiveKey); err != nil {
		return err
	}

	metrics.JobsProcessed.WithLabelValues(string(mode), models.StatusDone).Inc()
	metrics.JobDuration.WithLabelValues(string(mode)).Observe(time.Since(started).Seconds())

	p.deps.Logger.Info("Job complete",
		zap.String("job_id", jobID.String()),
		zap.String("mode", string(mode)),
		zap.Int("recipients", len(results)),
		zap.Int("succeeded", len(succeeded)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// runRecipients processes every recipient with bounded concurrency.
// Failures stay per-recipient; only the results array is shared and each
// goroutine writes its own slot.
func (p *PersonalizeProcessor) runRecipients(
	ctx context.Context,
	job *models.Job,
	mode splice.Mode,
	pos splice.NamePosition,
	engine *splice.Engine,
	base string,
	recs []recipients.Recipient,
	clips map[string]string,
	clipErrs map[string]error,
	workDir string,
) []recipientResult {
	results := make([]recipientResult, len(recs))

	sem := make(chan struct{}, p.deps.Config.Processing.RecipientConcurrency)
	var wg sync.WaitGroup
	for i, rec := range recs {
		wg.Add(1)
		go func(i int, rec recipients.Recipient) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, key, err := p.processRecipient(ctx, job, mode, pos, engine, base, i, rec, clips, clipErrs, workDir)
			results[i] = recipientResult{rec: rec, outputKey: key, localPath: out, err: err}
		}(i, rec)
	}
	wg.Wait()

	return results
}

func (p *PersonalizeProcessor) processRecipient(
	ctx context.Context,
	job *models.Job,
	mode splice.Mode,
	pos splice.NamePosition,
	engine *splice.Engine,
	base string,
	idx int,
	rec recipients.Recipient,
	clips map[string]string,
	clipErrs map[string]error,
	workDir string,
) (string, string, error) {
	values := recipientValues(mode, rec)
	matched := make([]string, len(values))

	recDir := filepath.Join(workDir, fmt.Sprintf("recipient_%d", idx))
	if err := os.MkdirAll(recDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create recipient dir: %w", err)
	}

	mediaCtx, cancel := context.WithTimeout(ctx, p.deps.Config.Timeouts.Media)
	defer cancel()

	for vi, value := range values {
		if err := clipErrs[value]; err != nil {
			return "", "", err
		}
		clip, ok := clips[value]
		if !ok {
			return "", "", fmt.Errorf("no synthesized clip for %q", value)
		}

		// Gain is applied on a per-recipient copy; cached clips stay pristine.
		dst := filepath.Join(recDir, fmt.Sprintf("clip_%d.wav", vi))
		if _, err := p.deps.Tool.MatchLoudness(mediaCtx, clip, base, dst, 0, 0, p.deps.Logger); err != nil {
			return "", "", fmt.Errorf("loudness matching failed: %w", err)
		}
		matched[vi] = dst
	}

	ext := ".mp4"
	if mode == splice.ModeEssential {
		ext = ".mp3"
	}
	out := filepath.Join(recDir, "output"+ext)

	// Splicing may run lip-sync inference, which dwarfs every other media
	// operation; give it its own budget on top of the media one.
	spliceBudget := p.deps.Config.Timeouts.Media
	if job.LipSync {
		spliceBudget += p.deps.Config.Timeouts.LipSync
	}
	spliceCtx, cancelSplice := context.WithTimeout(ctx, spliceBudget)
	defer cancelSplice()

	var err error
	switch mode {
	case splice.ModeEssential:
		err = engine.Essential(spliceCtx, base, matched[0], pos, recDir, out)
	case splice.ModeAdvanced:
		err = engine.ReplaceFirstSegment(spliceCtx, base, matched[0], recDir, out)
	case splice.ModeProfessional:
		if pos == splice.PositionStart {
			err = engine.InsertAtStart(spliceCtx, base, matched[0], recDir, out)
		} else {
			err = engine.ReplaceFirstSegmentSynced(spliceCtx, base, matched[0], recDir, out)
		}
	case splice.ModeEnterprise:
		err = engine.ReplaceMarkers(spliceCtx, base, matched, recDir, out)
	}
	if err != nil {
		return "", "", err
	}

	key := fmt.Sprintf("jobs/%s/outputs/%02d_%s%s", job.ID, idx, cache.Slug(rec.Name), ext)
	if err := p.upload(ctx, out, key, contentTypeFor(ext)); err != nil {
		return "", "", fmt.Errorf("failed to upload output: %w", err)
	}
	return out, key, nil
}

// recipientValues lists the texts a recipient needs synthesized: just the
// name, except in enterprise mode where every CSV field fills one marker.
func recipientValues(mode splice.Mode, rec recipients.Recipient) []string {
	if mode != splice.ModeEnterprise {
		return []string{rec.Name}
	}
	values := make([]string, 0, 1+len(rec.Fields))
	values = append(values, rec.Name)
	values = append(values, rec.Fields...)
	return values
}

func contentTypeFor(ext string) string {
	if ext == ".mp3" {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// prepareClips synthesizes (or recalls from cache) one clip per distinct
// value across all recipients. Returned maps are keyed by value; a value
// present in clipErrs failed synthesis and poisons only the recipients
// that use it.
func (p *PersonalizeProcessor) prepareClips(
	ctx context.Context,
	job *models.Job,
	mode splice.Mode,
	synth tts.Synthesizer,
	sampleHash string,
	recs []recipients.Recipient,
	workDir string,
) (map[string]string, map[string]error) {
	var order []string
	seen := make(map[string]bool)
	isName := make(map[string]bool)
	for _, rec := range recs {
		for vi, v := range recipientValues(mode, rec) {
			if !seen[v] {
				seen[v] = true
				isName[v] = vi == 0
				order = append(order, v)
			}
		}
	}

	clips := make(map[string]string, len(order))
	clipErrs := make(map[string]error)

	keyFor := func(value string) cache.Key {
		template := ""
		if isName[value] {
			template = job.TextTemplate
		}
		return cache.Key{
			Provider:        job.TTSProvider,
			Lang:            job.Lang,
			TextTemplate:    template,
			Command:         job.TTSCommand,
			VoiceID:         job.TTSVoiceID,
			ModelID:         job.TTSModelID,
			Speed:           job.TTSSpeed,
			VoiceSampleHash: sampleHash,
			Name:            value,
		}
	}
	phraseOf := func(value string) string {
		if isName[value] {
			return tts.RenderTemplate(job.TextTemplate, value)
		}
		return value
	}

	// Batch mode: synthesize all cache misses in one provider call, then
	// feed the segments into the cache.
	if job.BatchTTS && job.TTSProvider != tts.ProviderNone {
		p.prewarmBatch(ctx, job, synth, keyFor, phraseOf, order, workDir)
	}

	for _, value := range order {
		key := keyFor(value)
		phrase := phraseOf(value)

		if _, statErr := os.Stat(p.deps.NameCache.Path(key)); statErr == nil {
			metrics.NameCacheLookups.WithLabelValues("hit").Inc()
		} else {
			metrics.NameCacheLookups.WithLabelValues("miss").Inc()
		}

		path, err := p.deps.NameCache.GetOrCreate(ctx, key, func(ctx context.Context, dst string) error {
			return p.synthesizeTo(ctx, job, synth, phrase, dst)
		})
		if err != nil {
			metrics.TTSRequests.WithLabelValues(job.TTSProvider, "error").Inc()
			clipErrs[value] = fmt.Errorf("synthesis failed for %q: %w", value, err)
			continue
		}
		clips[value] = path
	}

	return clips, clipErrs
}

// synthesizeTo renders one phrase into a working-rate WAV at dst. The
// disabled provider yields a short silent placeholder instead.
func (p *PersonalizeProcessor) synthesizeTo(ctx context.Context, job *models.Job, synth tts.Synthesizer, phrase, dst string) error {
	ttsCtx, cancel := context.WithTimeout(ctx, p.deps.Config.Timeouts.TTS)
	defer cancel()

	if job.TTSProvider == tts.ProviderNone {
		return p.deps.Tool.SilenceClip(ttsCtx, dst, 0.8)
	}

	raw := dst + ".raw"
	defer os.Remove(raw)
	if err := synth.Synthesize(ttsCtx, phrase, raw); err != nil {
		return err
	}
	metrics.TTSRequests.WithLabelValues(job.TTSProvider, "ok").Inc()
	return p.deps.Tool.ToWAV(ttsCtx, raw, dst)
}

// prewarmBatch best-effort fills the cache from a single batched provider
// call. Any failure here is silent; the per-value path synthesizes the
// leftovers individually.
func (p *PersonalizeProcessor) prewarmBatch(
	ctx context.Context,
	job *models.Job,
	synth tts.Synthesizer,
	keyFor func(string) cache.Key,
	phraseOf func(string) string,
	order []string,
	workDir string,
) {
	var missing []string
	for _, value := range order {
		if _, err := os.Stat(p.deps.NameCache.Path(keyFor(value))); os.IsNotExist(err) {
			missing = append(missing, value)
		}
	}
	if len(missing) < 2 {
		return
	}

	batchDir := filepath.Join(workDir, "batch_tts")
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return
	}

	phrases := make([]string, len(missing))
	for i, value := range missing {
		phrases[i] = phraseOf(value)
	}

	ttsCtx, cancel := context.WithTimeout(ctx, p.deps.Config.Timeouts.TTS)
	defer cancel()

	batch := tts.NewBatch(synth, p.deps.Tool, tts.Thresholds{
		NoiseDB: job.SilenceNoiseDB,
		MinDur:  job.SilenceMinDur,
	}, p.deps.Logger)

	paths, err := batch.Run(ttsCtx, phrases, batchDir)
	if err != nil {
		p.deps.Logger.Warn("Batch synthesis unavailable, using per-name requests", zap.Error(err))
		return
	}
	metrics.TTSRequests.WithLabelValues(job.TTSProvider, "ok").Inc()

	for i, value := range missing {
		src := paths[i]
		_, err := p.deps.NameCache.GetOrCreate(ctx, keyFor(value), func(_ context.Context, dst string) error {
			return copyFile(src, dst)
		})
		if err != nil {
			p.deps.Logger.Warn("Failed to cache batch segment",
				zap.String("value", value),
				zap.Error(err),
			)
		}
	}
}

// buildSynthesizer resolves the job's provider, cloning a voice first when
// the cloud provider was given a sample instead of a voice id.
func (p *PersonalizeProcessor) buildSynthesizer(ctx context.Context, job *models.Job, samplePath, sampleHash string) (tts.Synthesizer, error) {
	switch job.TTSProvider {
	case tts.ProviderGTTS:
		return tts.NewGTTS(p.deps.Config.TTS.GTTSEndpoint, job.Lang, p.deps.Logger), nil

	case tts.ProviderElevenLabs:
		el := tts.NewElevenLabs(
			p.deps.Config.TTS.ElevenLabsBaseURL,
			p.deps.Config.TTS.ElevenLabsAPIKey,
			job.TTSVoiceID,
			job.TTSModelID,
			job.TTSSpeed,
			p.deps.Logger,
		)
		if job.TTSVoiceID != "" {
			return el, nil
		}
		if samplePath == "" {
			return nil, fmt.Errorf("cloud voice requires a voice id or a voice sample")
		}

		if voiceID, ok := p.deps.CloneCache.Lookup(sampleHash); ok {
			return el.WithVoice(voiceID), nil
		}
		voiceID, err := el.CloneVoice(ctx, "vidx-"+sampleHash[:8], samplePath)
		if err != nil {
			return nil, err
		}
		if err := p.deps.CloneCache.Store(sampleHash, voiceID); err != nil {
			p.deps.Logger.Warn("Failed to persist voice clone index", zap.Error(err))
		}
		return el.WithVoice(voiceID), nil

	case tts.ProviderCommand:
		return tts.NewCommand(job.TTSCommand, job.TTSVoiceID, media.DefaultRunner, p.deps.Logger)

	case tts.ProviderNone:
		return tts.NewNone(), nil

	default:
		return nil, fmt.Errorf("unknown tts provider %q", job.TTSProvider)
	}
}

func (p *PersonalizeProcessor) buildLipSync(job *models.Job) (*lipsync.Runner, error) {
	if !job.LipSync {
		return nil, nil
	}
	return lipsync.New(lipsync.Options{
		Repo:       p.deps.Config.LipSync.Repo,
		Checkpoint: p.deps.Config.LipSync.Checkpoint,
		Pads:       p.deps.Config.LipSync.Pads,
		Python:     p.deps.Config.LipSync.Python,
		Timeout:    p.deps.Config.Timeouts.LipSync,
	}, media.DefaultRunner, p.deps.Logger)
}

func (p *PersonalizeProcessor) loadRecipients(ctx context.Context, job *models.Job, workDir string) ([]recipients.Recipient, error) {
	local := filepath.Join(workDir, "recipients.csv")
	if err := p.download(ctx, job.RecipientsKey, local); err != nil {
		return nil, fmt.Errorf("failed to fetch recipient list: %w", err)
	}
	f, err := os.Open(local)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return recipients.Parse(f)
}

func (p *PersonalizeProcessor) fetchVoiceSample(ctx context.Context, job *models.Job, workDir string) (string, string, error) {
	if job.VoiceSampleKey == "" {
		return "", "", nil
	}
	local := filepath.Join(workDir, "voice_sample"+filepath.Ext(job.VoiceSampleKey))
	if err := p.download(ctx, job.VoiceSampleKey, local); err != nil {
		return "", "", fmt.Errorf("failed to fetch voice sample: %w", err)
	}
	hash, err := cache.HashSample(local)
	if err != nil {
		return "", "", err
	}
	return local, hash, nil
}

// buildNamesTrack concatenates every successful recipient's name clip into
// one review track with a short silence between names.
func (p *PersonalizeProcessor) buildNamesTrack(ctx context.Context, succeeded []recipientResult, clips map[string]string, gap float64, workDir string) (string, error) {
	mediaCtx, cancel := context.WithTimeout(ctx, p.deps.Config.Timeouts.Media)
	defer cancel()

	gapClip := filepath.Join(workDir, "names_gap.wav")
	if err := p.deps.Tool.SilenceClip(mediaCtx, gapClip, gap); err != nil {
		return "", err
	}

	var inputs []string
	for _, res := range succeeded {
		clip, ok := clips[res.rec.Name]
		if !ok {
			continue
		}
		if len(inputs) > 0 {
			inputs = append(inputs, gapClip)
		}
		inputs = append(inputs, clip)
	}
	if len(inputs) == 0 {
		return "", fmt.Errorf("no name clips available")
	}

	dst := filepath.Join(workDir, "names_master.wav")
	if err := p.deps.Tool.ConcatAudio(mediaCtx, inputs, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (p *PersonalizeProcessor) packageResults(ctx context.Context, jobID uuid.UUID, succeeded []recipientResult, namesTrack, workDir string) (string, error) {
	archive := filepath.Join(workDir, "personalized.zip")

	entries := make(map[string]string, len(succeeded)+1)
	for _, res := range succeeded {
		entries[cache.Slug(res.rec.Name)+filepath.Ext(res.localPath)] = res.localPath
	}
	if namesTrack != "" {
		entries["names_master.wav"] = namesTrack
	}
	if err := BuildArchive(archive, entries); err != nil {
		return "", err
	}

	key := fmt.Sprintf("jobs/%s/personalized.zip", jobID)
	if err := p.upload(ctx, archive, key, "application/zip"); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	return key, nil
}

func (p *PersonalizeProcessor) download(ctx context.Context, key, dst string) error {
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

	_, err = io.Copy(f, obj)
	return err
}

func (p *PersonalizeProcessor) upload(ctx context.Context, src, key, contentType string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return p.deps.Storage.PutObject(ctx, key, f, info.Size(), contentType)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func (p *PersonalizeProcessor) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	query := `
		SELECT id, status, insert_mode, name_position, text_template, lang,
		       tts_provider, tts_voice_id, tts_model_id, tts_speed, tts_command,
		       batch_tts, lip_sync, silence_noise_db, silence_min_dur,
		       base_video_key, recipients_key, voice_sample_key
		FROM jobs
		WHERE id = $1
	`
	var job models.Job
	err := p.deps.DB.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.Status, &job.InsertMode, &job.NamePosition, &job.TextTemplate, &job.Lang,
		&job.TTSProvider, &job.TTSVoiceID, &job.TTSModelID, &job.TTSSpeed, &job.TTSCommand,
		&job.BatchTTS, &job.LipSync, &job.SilenceNoiseDB, &job.SilenceMinDur,
		&job.BaseVideoKey, &job.RecipientsKey, &job.VoiceSampleKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

func (p *PersonalizeProcessor) insertRecipient(ctx context.Context, jobID uuid.UUID, idx int, name string) error {
	query := `
		INSERT INTO job_recipients (job_id, idx, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id, idx) DO NOTHING
	`
	now := time.Now()
	_, err := p.deps.DB.ExecContext(ctx, query, jobID, idx, name, models.StatusQueued, now, now)
	return err
}

func (p *PersonalizeProcessor) updateRecipient(ctx context.Context, jobID uuid.UUID, idx int, status string, errMsg, outputKey *string) error {
	query := `
		UPDATE job_recipients
		SET status = $1, error = $2, output_key = $3, updated_at = $4
		WHERE job_id = $5 AND idx = $6
	`
	_, err := p.deps.DB.ExecContext(ctx, query, status, errMsg, outputKey, time.Now(), jobID, idx)
	return err
}

func (p *PersonalizeProcessor) markJobDone(ctx context.Context, jobID uuid.UUID, archiveKey string) error {
	query := `UPDATE jobs SET status = $1, archive_key = $2, updated_at = $3 WHERE id = $4`
	_, err := p.deps.DB.ExecContext(ctx, query, models.StatusDone, archiveKey, time.Now(), jobID)
	return err
}
