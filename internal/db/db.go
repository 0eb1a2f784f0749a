package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database and applies migrations.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        username TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        is_admin BOOLEAN NOT NULL DEFAULT FALSE,
        avatar_url TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS profiles_username_key ON profiles (LOWER(username));`,
	`CREATE TABLE IF NOT EXISTS channels (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        name TEXT NOT NULL UNIQUE,
        description TEXT,
        created_by UUID NOT NULL REFERENCES profiles(id),
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS messages (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        content TEXT NOT NULL DEFAULT '',
        author_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        channel_id UUID REFERENCES channels(id) ON DELETE CASCADE,
        recipient_id UUID REFERENCES profiles(id) ON DELETE CASCADE,
        reply_to_id UUID REFERENCES messages(id) ON DELETE SET NULL,
        forwarded_from_id UUID REFERENCES messages(id) ON DELETE SET NULL,
        is_gif BOOLEAN NOT NULL DEFAULT FALSE,
        gif_url TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        CONSTRAINT messages_single_target CHECK ((channel_id IS NULL) <> (recipient_id IS NULL))
    );`,
	`CREATE INDEX IF NOT EXISTS messages_channel_created_idx ON messages (channel_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS messages_direct_created_idx ON messages (author_id, recipient_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS reactions (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
        user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
        emoji TEXT NOT NULL,
        UNIQUE (message_id, user_id, emoji)
    );`,
	`CREATE TABLE IF NOT EXISTS announcements (
        id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        content TEXT NOT NULL,
        starts_at TIMESTAMPTZ NOT NULL,
        ends_at TIMESTAMPTZ NOT NULL,
        created_by UUID NOT NULL REFERENCES profiles(id),
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        CHECK (ends_at >= starts_at)
    );`,
	// Rows are published as keys and references only: pg_notify rejects payloads of
	// 8000 bytes or more, and subscribers re-fetch the full row. password_hash never leaves.
	`CREATE OR REPLACE FUNCTION notify_realtime() RETURNS trigger AS $$
    DECLARE
        rec JSONB;
        old_rec JSONB;
    BEGIN
        IF TG_OP <> 'DELETE' THEN
            rec := to_jsonb(NEW) - ARRAY['password_hash', 'content', 'description', 'gif_url', 'avatar_url'];
        END IF;
        IF TG_OP <> 'INSERT' THEN
            old_rec := to_jsonb(OLD) - ARRAY['password_hash', 'content', 'description', 'gif_url', 'avatar_url'];
        END IF;
        PERFORM pg_notify('realtime', json_build_object(
            'table', TG_TABLE_NAME,
            'op', TG_OP,
            'record', rec,
            'old', old_rec
        )::text);
        RETURN NULL;
    END;
    $$ LANGUAGE plpgsql;`,
}

func init() {
	for _, table := range []string{"profiles", "channels", "messages", "reactions", "announcements"} {
		migrations = append(migrations,
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %[1]s_realtime ON %[1]s;`, table),
			fmt.Sprintf(`CREATE TRIGGER %[1]s_realtime AFTER INSERT OR UPDATE OR DELETE ON %[1]s
        FOR EACH ROW EXECUTE FUNCTION notify_realtime();`, table),
		)
	}
}
