package models

import "time"

// Story is a saved bedtime story belonging to a user. Pages are kept as
// an ordered list of page texts, stored as JSONB.
type Story struct {
	ID            string    `json:"id" db:"id"`
	UserKey       string    `json:"-" db:"user_key"`
	Title         string    `json:"title" db:"title"`
	ChildName     string    `json:"child_name,omitempty" db:"child_name"`
	Age           string    `json:"age,omitempty" db:"age"`
	Theme         string    `json:"theme,omitempty" db:"theme"`
	Style         string    `json:"style,omitempty" db:"style"`
	Length        string    `json:"length,omitempty" db:"length"`
	Moral         string    `json:"moral,omitempty" db:"moral"`
	Pages         []string  `json:"pages" db:"pages"`
	CoverImageURL string    `json:"cover_image_url,omitempty" db:"cover_image_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// DefaultTitle returns the title to store when the client sent none.
func (s *Story) DefaultTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.ChildName != "" {
		return "Story for " + s.ChildName
	}
	return "Bedtime story"
}
