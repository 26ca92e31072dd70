package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storynest/backend/internal/database"
	"github.com/storynest/backend/internal/models"
)

// StoryRepository handles saved-story database operations
type StoryRepository struct {
	db *database.DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *database.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// Save persists a story for a user. Pages are stored as JSONB.
func (r *StoryRepository) Save(ctx context.Context, story *models.Story) error {
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	story.Title = story.DefaultTitle()
	story.CreatedAt = time.Now()

	pages, err := json.Marshal(story.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal story pages: %w", err)
	}

	query := `
		INSERT INTO stories (id, user_key, title, child_name, age, theme, style, length, moral, pages, cover_image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		story.ID, story.UserKey, story.Title, story.ChildName, story.Age,
		story.Theme, story.Style, story.Length, story.Moral, pages,
		story.CoverImageURL, story.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save story: %w", err)
	}

	return nil
}

// ListByUser returns a user's stories, newest first.
func (r *StoryRepository) ListByUser(ctx context.Context, userKey string, limit, offset int) ([]models.Story, error) {
	query := `
		SELECT id, user_key, title, child_name, age, theme, style, length, moral, pages, cover_image_url, created_at
		FROM stories
		WHERE user_key = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userKey, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	stories := make([]models.Story, 0)
	for rows.Next() {
		var story models.Story
		var pages []byte
		err := rows.Scan(
			&story.ID, &story.UserKey, &story.Title, &story.ChildName, &story.Age,
			&story.Theme, &story.Style, &story.Length, &story.Moral, &pages,
			&story.CoverImageURL, &story.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		if err := json.Unmarshal(pages, &story.Pages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal story pages: %w", err)
		}
		stories = append(stories, story)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stories: %w", err)
	}

	return stories, nil
}
