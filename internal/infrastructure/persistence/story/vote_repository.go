package story

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

type VoteRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewVoteRepository(db *sql.DB, logger *logging.ChanneledLogger) *VoteRepository {
	return &VoteRepository{db: db, logger: logger}
}

// Store inserts a vote and adds its weight to the submission's total in one
// transaction. The (submission, voter) unique constraint rejects duplicates.
func (r *VoteRepository) Store(ctx context.Context, v *story.Vote) error {
	insert := `INSERT INTO votes (id, submission_id, voter_address, transaction_hash, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	tally := `UPDATE submissions SET total_votes = total_votes + ? WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing vote insert", "id", v.ID, "submissionId", v.SubmissionID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insert, v.ID, v.SubmissionID, v.Voter.Address, v.TransactionHash,
		v.Weight, formatTime(v.CreatedAt)); err != nil {
		r.logger.Database().Error("Vote insert failed", "error", err.Error(), "id", v.ID)
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	result, err := tx.ExecContext(ctx, tally, v.Weight, v.SubmissionID)
	if err != nil {
		r.logger.Database().Error("Vote tally failed", "error", err.Error(), "id", v.ID)
		return fmt.Errorf("failed to tally vote: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("submission %s does not exist", v.SubmissionID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vote: %w", err)
	}

	observe(r.logger, insert, start)
	return nil
}

func (r *VoteRepository) FindBySubmission(ctx context.Context, submissionID string) ([]*story.Vote, error) {
	return r.query(ctx, `WHERE submission_id = ?`, submissionID)
}

func (r *VoteRepository) FindBySubmissionAndVoter(ctx context.Context, submissionID, voter string) (*story.Vote, error) {
	votes, err := r.query(ctx, `WHERE submission_id = ? AND voter_address = ?`, submissionID, voter)
	if err != nil {
		return nil, err
	}
	if len(votes) == 0 {
		return nil, nil
	}
	return votes[0], nil
}

func (r *VoteRepository) FindByVoter(ctx context.Context, voter string) ([]*story.Vote, error) {
	return r.query(ctx, `WHERE voter_address = ?`, voter)
}

func (r *VoteRepository) query(ctx context.Context, where string, args ...any) ([]*story.Vote, error) {
	query := `SELECT id, submission_id, voter_address, transaction_hash, weight, created_at FROM votes ` +
		where + ` ORDER BY created_at, rowid`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Database().Error("Vote query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	result := []*story.Vote{}
	for rows.Next() {
		var v story.Vote
		var createdAt string
		if err := rows.Scan(&v.ID, &v.SubmissionID, &v.Voter.Address, &v.TransactionHash, &v.Weight, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.CreatedAt = parseTime(createdAt)
		result = append(result, &v)
	}

	observe(r.logger, query, start)
	return result, rows.Err()
}
