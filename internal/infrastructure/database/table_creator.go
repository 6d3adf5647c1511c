// Package database provides schema creation for the SQL story store.
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the story store schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
// Every statement is idempotent.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// TableNames lists the tables CreateSchema manages.
func (tc *TableCreator) TableNames() []string {
	return []string{"stories", "chapters", "submissions", "votes", "drafts"}
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		creator_address TEXT NOT NULL,
		creator_username TEXT,
		creator_avatar TEXT,
		created_at TEXT NOT NULL,
		is_complete INTEGER NOT NULL DEFAULT 0,
		current_chapter INTEGER NOT NULL DEFAULT 0,
		max_chapters INTEGER NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		total_votes INTEGER NOT NULL DEFAULT 0,
		CHECK (current_chapter >= 0 AND current_chapter <= max_chapters)
	)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL REFERENCES stories(id),
		chapter_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		author_address TEXT NOT NULL,
		author_username TEXT,
		votes INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (story_id, chapter_number)
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		story_id TEXT NOT NULL REFERENCES stories(id),
		chapter_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		author_address TEXT NOT NULL,
		author_username TEXT,
		total_votes INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		is_winner INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		submission_id TEXT NOT NULL REFERENCES submissions(id),
		voter_address TEXT NOT NULL,
		transaction_hash TEXT NOT NULL,
		weight INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		UNIQUE (submission_id, voter_address)
	)`,
	`CREATE TABLE IF NOT EXISTS drafts (
		owner TEXT NOT NULL,
		draft_key TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (owner, draft_key)
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_stories_created ON stories(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_chapters_story ON chapters(story_id, chapter_number)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_slot ON submissions(story_id, chapter_number)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_author ON submissions(author_address)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes(voter_address)`,
}
