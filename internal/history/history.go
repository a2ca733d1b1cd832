// Package history persists finished download attempts in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// Entry is one finished attempt
type Entry struct {
	ID        int64                `json:"id"`
	AttemptID string               `json:"attempt_id"`
	UserID    int64                `json:"user_id"`
	ChatID    int64                `json:"chat_id"`
	Track     domain.Track         `json:"track"`
	Kind      domain.OutcomeKind   `json:"kind"`
	Reason    domain.FailureReason `json:"reason,omitempty"`
	SizeBytes int64                `json:"size_bytes"`
	CreatedAt time.Time            `json:"created_at"`
}

// ArtistCount is a delivered-track count for one artist
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int64  `json:"count"`
}

// Stats summarises all recorded attempts
type Stats struct {
	Total          int64         `json:"total"`
	Delivered      int64         `json:"delivered"`
	Rejected       int64         `json:"rejected"`
	Failed         int64         `json:"failed"`
	UniqueUsers    int64         `json:"unique_users"`
	DeliveredBytes int64         `json:"delivered_bytes"`
	TopArtists     []ArtistCount `json:"top_artists"`
}

// Store records attempts in a SQLite database
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) initTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		chat_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		source_url TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		kind TEXT NOT NULL,
		reason TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, created_at);
	`)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the outcome of an attempt made by userID in chatID
func (s *Store) Record(ctx context.Context, userID, chatID int64, track domain.Track, outcome domain.Outcome) error {
	query := `INSERT INTO attempts
		(attempt_id, user_id, chat_id, title, artist, source_url, duration_seconds, kind, reason, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		outcome.AttemptID, userID, chatID,
		track.Title, track.Artist, track.SourceURL, track.DurationSeconds,
		string(outcome.Kind), string(outcome.Reason), outcome.SizeBytes,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Recent returns the user's latest delivered tracks, newest first
func (s *Store) Recent(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, attempt_id, user_id, chat_id, title, artist, source_url, duration_seconds, kind, reason, size_bytes, created_at
		FROM attempts WHERE user_id = ? AND kind = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userID, string(domain.OutcomeDelivered), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			kind      string
			reason    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.AttemptID, &e.UserID, &e.ChatID,
			&e.Track.Title, &e.Track.Artist, &e.Track.SourceURL, &e.Track.DurationSeconds,
			&kind, &reason, &e.SizeBytes, &createdAt); err != nil {
			return nil, err
		}
		e.Kind = domain.OutcomeKind(kind)
		e.Reason = domain.FailureReason(reason)
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates every recorded attempt
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	row := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT user_id),
			COALESCE(SUM(CASE WHEN kind = ? THEN size_bytes ELSE 0 END), 0)
		FROM attempts`,
		string(domain.OutcomeDelivered),
		string(domain.OutcomeRejectedTooLarge),
		string(domain.OutcomeFailed),
		string(domain.OutcomeDelivered),
	)
	if err := row.Scan(&st.Total, &st.Delivered, &st.Rejected, &st.Failed, &st.UniqueUsers, &st.DeliveredBytes); err != nil {
		return Stats{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT artist, COUNT(*) AS n FROM attempts
		WHERE kind = ? AND artist != '' GROUP BY artist ORDER BY n DESC, artist ASC LIMIT 5`,
		string(domain.OutcomeDelivered))
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var ac ArtistCount
		if err := rows.Scan(&ac.Artist, &ac.Count); err != nil {
			return Stats{}, err
		}
		st.TopArtists = append(st.TopArtists, ac)
	}
	return st, rows.Err()
}
