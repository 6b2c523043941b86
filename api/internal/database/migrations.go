package database

import (
	"database/sql"
	"fmt"
)

// Migrate runs database migrations.
func Migrate(db *sql.DB) error {
	migrations := []string{
		createExtensions,
		createJobsTable,
		createJobRecipientsTable,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const createExtensions = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;
`

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    status VARCHAR(20) NOT NULL DEFAULT 'queued',
    error TEXT,
    kind VARCHAR(20) NOT NULL DEFAULT 'personalize',
    insert_mode VARCHAR(20) NOT NULL DEFAULT 'essential',
    name_position VARCHAR(10) NOT NULL DEFAULT 'end',
    text_template TEXT NOT NULL DEFAULT '',
    lang VARCHAR(10) NOT NULL DEFAULT 'en',
    tts_provider VARCHAR(20) NOT NULL DEFAULT 'gtts',
    tts_voice_id TEXT NOT NULL DEFAULT '',
    tts_model_id TEXT NOT NULL DEFAULT '',
    tts_speed DOUBLE PRECISION NOT NULL DEFAULT 0,
    tts_command TEXT NOT NULL DEFAULT '',
    batch_tts BOOLEAN NOT NULL DEFAULT FALSE,
    lip_sync BOOLEAN NOT NULL DEFAULT FALSE,
    silence_noise_db DOUBLE PRECISION NOT NULL DEFAULT -35,
    silence_min_dur DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    base_video_key VARCHAR(255) NOT NULL DEFAULT '',
    recipients_key VARCHAR(255) NOT NULL DEFAULT '',
    voice_sample_key VARCHAR(255) NOT NULL DEFAULT '',
    archive_key VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

const createJobRecipientsTable = `
CREATE TABLE IF NOT EXISTS job_recipients (
    job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    name TEXT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'queued',
    error TEXT,
    output_key VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (job_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_job_recipients_status ON job_recipients(status);
`
