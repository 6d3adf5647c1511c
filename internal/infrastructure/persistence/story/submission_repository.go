package story

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

type SubmissionRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewSubmissionRepository(db *sql.DB, logger *logging.ChanneledLogger) *SubmissionRepository {
	return &SubmissionRepository{db: db, logger: logger}
}

const submissionColumns = `seq, id, story_id, chapter_number, content, author_address, author_username,
	total_votes, created_at, is_winner`

// Store inserts the submission and records the database sequence on it.
func (r *SubmissionRepository) Store(ctx context.Context, sub *story.Submission) error {
	query := `INSERT INTO submissions (id, story_id, chapter_number, content, author_address, author_username,
		total_votes, created_at, is_winner) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing submission insert", "id", sub.ID, "storyId", sub.StoryID)

	result, err := r.db.ExecContext(ctx, query, sub.ID, sub.StoryID, sub.ChapterNumber, sub.Content,
		sub.Author.Address, nullString(sub.Author.Username), sub.TotalVotes, formatTime(sub.CreatedAt),
		boolToInt(sub.IsWinner))
	if err != nil {
		r.logger.Database().Error("Submission insert failed", "error", err.Error(), "id", sub.ID)
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	if seq, err := result.LastInsertId(); err == nil {
		sub.Seq = seq
	}

	observe(r.logger, query, start)
	return nil
}

func (r *SubmissionRepository) Update(ctx context.Context, sub *story.Submission) error {
	query := `UPDATE submissions SET content = ?, total_votes = ?, is_winner = ? WHERE id = ?`

	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, sub.Content, sub.TotalVotes, boolToInt(sub.IsWinner), sub.ID)
	if err != nil {
		r.logger.Database().Error("Submission update failed", "error", err.Error(), "id", sub.ID)
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("submission %s does not exist", sub.ID)
	}

	observe(r.logger, query, start)
	return nil
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*story.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Submission query failed", "error", err.Error(), "id", id)
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	return sub, nil
}

func (r *SubmissionRepository) FindBySlot(ctx context.Context, storyID string, chapterNumber int) ([]*story.Submission, error) {
	return r.query(ctx, `WHERE story_id = ? AND chapter_number = ?`, storyID, chapterNumber)
}

func (r *SubmissionRepository) FindByStory(ctx context.Context, storyID string) ([]*story.Submission, error) {
	return r.query(ctx, `WHERE story_id = ?`, storyID)
}

func (r *SubmissionRepository) FindByAuthor(ctx context.Context, address string) ([]*story.Submission, error) {
	return r.query(ctx, `WHERE author_address = ?`, address)
}

func (r *SubmissionRepository) query(ctx context.Context, where string, args ...any) ([]*story.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ` + where + ` ORDER BY seq`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Database().Error("Submission list query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	result := []*story.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		result = append(result, sub)
	}

	observe(r.logger, query, start)
	return result, rows.Err()
}

func scanSubmission(row rowScanner) (*story.Submission, error) {
	var sub story.Submission
	var username sql.NullString
	var createdAt string
	var isWinner int

	err := row.Scan(&sub.Seq, &sub.ID, &sub.StoryID, &sub.ChapterNumber, &sub.Content, &sub.Author.Address,
		&username, &sub.TotalVotes, &createdAt, &isWinner)
	if err != nil {
		return nil, err
	}
	sub.Author.Username = stringPtr(username)
	sub.CreatedAt = parseTime(createdAt)
	sub.IsWinner = isWinner == 1
	sub.Votes = []*story.Vote{}
	return &sub, nil
}
