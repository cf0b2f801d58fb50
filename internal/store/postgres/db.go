package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the chat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id           TEXT         PRIMARY KEY,
			user_id      TEXT         UNIQUE NOT NULL,
			display_name VARCHAR(100) NOT NULL,
			avatar_url   TEXT,
			phone_number VARCHAR(32),
			bio          TEXT,
			last_seen    TIMESTAMPTZ,
			is_online    BOOLEAN      NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT         PRIMARY KEY,
			type       VARCHAR(10)  NOT NULL CHECK (type IN ('direct', 'group')),
			name       VARCHAR(100),
			avatar_url TEXT,
			created_by TEXT,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id TEXT        NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			user_id         TEXT        NOT NULL,
			joined_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (conversation_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              TEXT        PRIMARY KEY,
			conversation_id TEXT        NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       TEXT        NOT NULL,
			content         TEXT        NOT NULL,
			message_type    VARCHAR(10) NOT NULL DEFAULT 'text'
				CHECK (message_type IN ('text', 'image', 'file', 'audio')),
			file_url        TEXT,
			reply_to        TEXT        REFERENCES messages(id) ON DELETE SET NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profiles_is_online ON profiles(is_online)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

var now = func() time.Time { return time.Now().UTC() }
