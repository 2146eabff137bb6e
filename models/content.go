package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Thread is a discussion topic.
type Thread struct {
	ID         string     `json:"id"`
	AuthorID   string     `json:"author_id"`
	CategoryID *string    `json:"category_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	IsDeleted  bool       `json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Post is a reply inside a thread.
type Post struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	AuthorID  string     `json:"author_id"`
	Content   string     `json:"content"`
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ContentRef is the minimal view of a vote target.
type ContentRef struct {
	TargetType TargetType
	ID         string
	AuthorID   string
	CategoryID *string
	CreatedAt  time.Time
}

type CreateThreadRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CategoryID *string `json:"category_id"`
}

func (r *CreateThreadRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Content = strings.TrimSpace(r.Content)
	if r.Title == "" || utf8.RuneCountInString(r.Title) > 200 {
		return fmt.Errorf("title must be between 1 and 200 characters")
	}
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(r.Content) > 20000 {
		return fmt.Errorf("content must be at most 20000 characters")
	}
	return nil
}

type CreatePostRequest struct {
	Content string `json:"content"`
}

func (r *CreatePostRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(r.Content) > 20000 {
		return fmt.Errorf("content must be at most 20000 characters")
	}
	return nil
}
