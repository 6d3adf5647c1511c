package story

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

type StoryRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewStoryRepository(db *sql.DB, logger *logging.ChanneledLogger) *StoryRepository {
	return &StoryRepository{db: db, logger: logger}
}

const storyColumns = `id, title, description, creator_address, creator_username, creator_avatar,
	created_at, is_complete, current_chapter, max_chapters, tags, total_votes`

func (r *StoryRepository) Store(ctx context.Context, s *story.Story) error {
	tagsJSON, _ := json.Marshal(s.Tags)
	query := `INSERT INTO stories (` + storyColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing story insert", "id", s.ID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin story insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, query,
		s.ID, s.Title, s.Description, s.Creator.Address, nullString(s.Creator.Username), nullString(s.Creator.Avatar),
		formatTime(s.CreatedAt), boolToInt(s.IsComplete), s.CurrentChapter, s.MaxChapters, string(tagsJSON), s.TotalVotes)
	if err != nil {
		r.logger.Database().Error("Story insert failed", "error", err.Error(), "id", s.ID)
		return fmt.Errorf("failed to insert story: %w", err)
	}
	if err := r.insertChapters(ctx, tx, s.Chapters); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit story insert: %w", err)
	}

	r.logger.Database().Info("Story insert completed", "id", s.ID, "duration", time.Since(start))
	observe(r.logger, query, start)
	return nil
}

func (r *StoryRepository) Update(ctx context.Context, s *story.Story) error {
	tagsJSON, _ := json.Marshal(s.Tags)
	query := `UPDATE stories SET title = ?, description = ?, is_complete = ?, current_chapter = ?,
		max_chapters = ?, tags = ?, total_votes = ? WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing story update", "id", s.ID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin story update: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, s.Title, s.Description, boolToInt(s.IsComplete),
		s.CurrentChapter, s.MaxChapters, string(tagsJSON), s.TotalVotes, s.ID)
	if err != nil {
		r.logger.Database().Error("Story update failed", "error", err.Error(), "id", s.ID)
		return fmt.Errorf("failed to update story: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("story %s does not exist", s.ID)
	}
	if err := r.insertChapters(ctx, tx, s.Chapters); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit story update: %w", err)
	}

	r.logger.Database().Info("Story update completed", "id", s.ID, "duration", time.Since(start))
	observe(r.logger, query, start)
	return nil
}

// insertChapters stores chapters that are not yet persisted. Chapters are append-only.
func (r *StoryRepository) insertChapters(ctx context.Context, tx *sql.Tx, chapters []*story.Chapter) error {
	query := `INSERT OR IGNORE INTO chapters (id, story_id, chapter_number, content, author_address,
		author_username, votes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, ch := range chapters {
		_, err := tx.ExecContext(ctx, query, ch.ID, ch.StoryID, ch.ChapterNumber, ch.Content,
			ch.Author.Address, nullString(ch.Author.Username), ch.Votes, formatTime(ch.CreatedAt))
		if err != nil {
			r.logger.Database().Error("Chapter insert failed", "error", err.Error(), "id", ch.ID)
			return fmt.Errorf("failed to insert chapter: %w", err)
		}
	}
	return nil
}

func (r *StoryRepository) FindByID(ctx context.Context, id string) (*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing story query", "id", id)

	s, err := scanStory(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Story query failed", "error", err.Error(), "id", id)
		return nil, fmt.Errorf("failed to scan story: %w", err)
	}

	chapters, err := r.loadChapters(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	s.Chapters = chapters[id]

	observe(r.logger, query, start)
	return s, nil
}

// FindAll returns every story in creation order.
func (r *StoryRepository) FindAll(ctx context.Context) ([]*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories ORDER BY created_at, rowid`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Database().Error("Story list query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	stories := []*story.Story{}
	var ids []string
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chapters, err := r.loadChapters(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range stories {
		s.Chapters = chapters[s.ID]
	}

	r.logger.Database().Debug("Story list loaded", "count", len(stories), "duration", time.Since(start))
	observe(r.logger, query, start)
	return stories, nil
}

func (r *StoryRepository) loadChapters(ctx context.Context, storyIDs []string) (map[string][]*story.Chapter, error) {
	result := make(map[string][]*story.Chapter, len(storyIDs))
	for _, id := range storyIDs {
		result[id] = []*story.Chapter{}
	}
	if len(storyIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(storyIDs)
	query := fmt.Sprintf(`SELECT id, story_id, chapter_number, content, author_address, author_username,
		votes, created_at FROM chapters WHERE story_id IN (%s) ORDER BY story_id, chapter_number`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Database().Error("Chapter query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ch story.Chapter
		var username sql.NullString
		var createdAt string
		if err := rows.Scan(&ch.ID, &ch.StoryID, &ch.ChapterNumber, &ch.Content, &ch.Author.Address,
			&username, &ch.Votes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		ch.Author.Username = stringPtr(username)
		ch.CreatedAt = parseTime(createdAt)
		ch.IsSelected = true
		ch.Submissions = []*story.Submission{}
		result[ch.StoryID] = append(result[ch.StoryID], &ch)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*story.Story, error) {
	var s story.Story
	var username, avatar sql.NullString
	var createdAt, tagsJSON string
	var isComplete int

	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Creator.Address, &username, &avatar,
		&createdAt, &isComplete, &s.CurrentChapter, &s.MaxChapters, &tagsJSON, &s.TotalVotes)
	if err != nil {
		return nil, err
	}

	s.Creator = userFrom(s.Creator.Address, username, avatar)
	s.CreatedAt = parseTime(createdAt)
	s.IsComplete = isComplete == 1
	s.Tags = []string{}
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &s.Tags)
	}
	return &s, nil
}

func inClause(values []string) (string, []any) {
	args := make([]any, len(values))
	placeholders := make([]byte, 0, len(values)*2)
	for i, v := range values {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = v
	}
	return string(placeholders), args
}
