package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"vidx/api/internal/config"
	"vidx/api/internal/database"
	"vidx/api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

type fakeStorage struct {
	objects map[string][]byte
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

type fakePublisher struct {
	routingKeys []string
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	f.routingKeys = append(f.routingKeys, routingKey)
	return nil
}

func newTestService(t *testing.T) (*JobService, sqlmock.Sqlmock, *fakeStorage, *fakePublisher) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := newFakeStorage()
	pub := &fakePublisher{}
	svc := NewJobService(&database.DB{DB: db}, store, pub, config.UploadConfig{})
	return svc, mock, store, pub
}

// fileHeader builds a multipart.FileHeader carrying content, the way gin
// hands them to the service.
func fileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	w.Close()

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("failed to read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestCreateJob(t *testing.T) {
	svc, mock, store, pub := newTestService(t)

	mock.ExpectExec("INSERT INTO jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	job, err := svc.CreateJob(context.Background(), CreateJobInput{
		InsertMode:   "advanced",
		TextTemplate: "Hello {name}, welcome",
	},
		fileHeader(t, "base.mp4", "video-bytes"),
		fileHeader(t, "list.csv", "name\nAlice\nBob\n"),
		nil,
	)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if job.Status != models.JobStatusQueued {
		t.Errorf("expected status queued, got %s", job.Status)
	}
	if job.TTSProvider != "gtts" {
		t.Errorf("expected default provider gtts, got %s", job.TTSProvider)
	}
	if job.SilenceNoiseDB != -35 {
		t.Errorf("expected default silence threshold -35, got %v", job.SilenceNoiseDB)
	}
	if _, ok := store.objects[job.BaseVideoKey]; !ok {
		t.Errorf("base video was not stored under %s", job.BaseVideoKey)
	}
	if _, ok := store.objects[job.RecipientsKey]; !ok {
		t.Errorf("recipient list was not stored under %s", job.RecipientsKey)
	}
	if len(pub.routingKeys) != 1 || pub.routingKeys[0] != "job.personalize" {
		t.Errorf("expected one publish to job.personalize, got %v", pub.routingKeys)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func TestCreateJobValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateJobInput
		list  string
	}{
		{
			name:  "unknown insert mode",
			input: CreateJobInput{InsertMode: "ultimate"},
			list:  "name\nAlice\n",
		},
		{
			name:  "unknown name position",
			input: CreateJobInput{NamePosition: "middle"},
			list:  "name\nAlice\n",
		},
		{
			name:  "unknown provider",
			input: CreateJobInput{TTSProvider: "espeak"},
			list:  "name\nAlice\n",
		},
		{
			name:  "command without placeholders",
			input: CreateJobInput{TTSProvider: "command", TTSCommand: "say hello"},
			list:  "name\nAlice\n",
		},
		{
			name:  "elevenlabs without voice",
			input: CreateJobInput{TTSProvider: "elevenlabs"},
			list:  "name\nAlice\n",
		},
		{
			name:  "positive silence threshold",
			input: CreateJobInput{SilenceNoiseDB: 20},
			list:  "name\nAlice\n",
		},
		{
			name:  "list without name column",
			input: CreateJobInput{},
			list:  "email\na@example.com\n",
		},
		{
			name:  "empty list",
			input: CreateJobInput{},
			list:  "name\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, store, pub := newTestService(t)

			_, err := svc.CreateJob(context.Background(), tt.input,
				fileHeader(t, "base.mp4", "video-bytes"),
				fileHeader(t, "list.csv", tt.list),
				nil,
			)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !IsValidationError(err) {
				t.Errorf("expected a validation error, got %v", err)
			}
			if len(pub.routingKeys) != 0 {
				t.Errorf("invalid job was published: %v", pub.routingKeys)
			}
			if len(store.objects) != 0 {
				t.Errorf("invalid job left %d stored objects", len(store.objects))
			}
		})
	}
}

func TestCreateJobUploadLimit(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	svc := NewJobService(&database.DB{DB: db}, newFakeStorage(), &fakePublisher{}, config.UploadConfig{
		MaxVideoBytes: 4,
	})

	_, err = svc.CreateJob(context.Background(), CreateJobInput{},
		fileHeader(t, "base.mp4", "more-than-four-bytes"),
		fileHeader(t, "list.csv", "name\nAlice\n"),
		nil,
	)
	if !IsValidationError(err) {
		t.Fatalf("expected a validation error for the oversized upload, got %v", err)
	}
}

func TestCreateConvertJob(t *testing.T) {
	svc, mock, store, pub := newTestService(t)

	mock.ExpectExec("INSERT INTO jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	job, err := svc.CreateConvertJob(context.Background(), fileHeader(t, "clip.mov", "mov-bytes"))
	if err != nil {
		t.Fatalf("CreateConvertJob failed: %v", err)
	}

	if job.Kind != models.JobKindConvert {
		t.Errorf("expected kind convert, got %s", job.Kind)
	}
	if !strings.HasSuffix(job.BaseVideoKey, ".mov") {
		t.Errorf("expected source key to keep the upload extension, got %s", job.BaseVideoKey)
	}
	if _, ok := store.objects[job.BaseVideoKey]; !ok {
		t.Errorf("source video was not stored under %s", job.BaseVideoKey)
	}
	if len(pub.routingKeys) != 1 || pub.routingKeys[0] != "job.convert" {
		t.Errorf("expected one publish to job.convert, got %v", pub.routingKeys)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func jobColumns() []string {
	return []string{
		"id", "status", "error", "kind", "insert_mode", "name_position", "text_template", "lang",
		"tts_provider", "batch_tts", "lip_sync", "silence_noise_db", "silence_min_dur",
		"archive_key", "created_at", "updated_at",
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	jobID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(jobID).
		WillReturnError(sql.ErrNoRows)

	if _, _, err := svc.GetJob(context.Background(), jobID); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetJobWithRecipients(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	jobID := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows(jobColumns()).AddRow(
			jobID, "done", nil, "personalize", "advanced", "end", "Hello {name}", "en",
			"gtts", false, false, -35.0, 0.5,
			"jobs/x/personalized.zip", now, now,
		))
	mock.ExpectQuery("SELECT (.+) FROM job_recipients").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "idx", "name", "status", "error", "output_key"}).
			AddRow(jobID, 0, "Alice", "done", nil, "jobs/x/outputs/00_alice.mp4").
			AddRow(jobID, 1, "Bob", "failed", "tts failed", nil))

	job, recs, err := svc.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}

	if job.Status != models.JobStatusDone {
		t.Errorf("expected status done, got %s", job.Status)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(recs))
	}
	if recs[1].Name != "Bob" || recs[1].Status != models.JobStatusFailed {
		t.Errorf("unexpected second recipient: %+v", recs[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func TestDownloadURL(t *testing.T) {
	svc, mock, _, _ := newTestService(t)

	jobID := uuid.New()
	now := time.Now()

	// Finished job with a packaged archive.
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows(jobColumns()).AddRow(
			jobID, "done", nil, "personalize", "essential", "end", "", "en",
			"gtts", false, false, -35.0, 0.5,
			"jobs/x/personalized.zip", now, now,
		))
	mock.ExpectQuery("SELECT (.+) FROM job_recipients").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "idx", "name", "status", "error", "output_key"}))

	url, err := svc.DownloadURL(context.Background(), jobID)
	if err != nil {
		t.Fatalf("DownloadURL failed: %v", err)
	}
	if url != "https://example.test/jobs/x/personalized.zip" {
		t.Errorf("unexpected download url: %s", url)
	}

	// Still running: no download yet.
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows(jobColumns()).AddRow(
			jobID, "running", nil, "personalize", "essential", "end", "", "en",
			"gtts", false, false, -35.0, 0.5,
			nil, now, now,
		))
	mock.ExpectQuery("SELECT (.+) FROM job_recipients").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "idx", "name", "status", "error", "output_key"}))

	if _, err := svc.DownloadURL(context.Background(), jobID); err != ErrJobNotReady {
		t.Errorf("expected ErrJobNotReady, got %v", err)
	}
}
