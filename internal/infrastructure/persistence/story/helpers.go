// Package story provides the SQL implementations of the story repositories,
// shared by the SQLite and Turso backends.
package story

import (
	"database/sql"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/domain/repositories"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewStores wires every SQL repository onto one connection.
func NewStores(db *sql.DB, logger *logging.ChanneledLogger) repositories.Stores {
	return repositories.Stores{
		Stories:     NewStoryRepository(db, logger),
		Submissions: NewSubmissionRepository(db, logger),
		Votes:       NewVoteRepository(db, logger),
		Drafts:      NewDraftRepository(db, logger),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func userFrom(address string, username, avatar sql.NullString) story.User {
	return story.User{Address: address, Username: stringPtr(username), Avatar: stringPtr(avatar)}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// observe logs a finished query and flags it when slow.
func observe(logger *logging.ChanneledLogger, query string, start time.Time) {
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		logger.LogSlowQuery(query, duration)
	}
}
