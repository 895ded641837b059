package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Post is a blog entry joined with its author's username.
type Post struct {
	ID       int64     `db:"id"`
	AuthorID int64     `db:"author_id"`
	Username string    `db:"username"`
	Created  time.Time `db:"created"`
	Title    string    `db:"title"`
	Body     string    `db:"body"`
}

const selectPost = `
	SELECT p.id, p.title, p.body, p.created, p.author_id, u.username
	FROM post p JOIN user u ON p.author_id = u.id
`

// ListPosts returns every post, newest first.
func (c *Conn) ListPosts(ctx context.Context) ([]*Post, error) {
	var posts []*Post
	if err := c.SelectContext(ctx, &posts, selectPost+" ORDER BY p.created DESC, p.id DESC"); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// GetPost retrieves a post by ID. Returns nil if not found.
func (c *Conn) GetPost(ctx context.Context, id int64) (*Post, error) {
	post := &Post{}
	err := c.GetContext(ctx, post, selectPost+" WHERE p.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// CreatePost inserts a new post for authorID and returns its ID.
func (c *Conn) CreatePost(ctx context.Context, authorID int64, title, body string) (int64, error) {
	result, err := c.ExecContext(ctx, `
		INSERT INTO post (title, body, author_id) VALUES (?, ?, ?)
	`, title, body, authorID)
	if err != nil {
		return 0, fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get post id: %w", err)
	}
	return id, nil
}

// UpdatePost replaces a post's title and body.
func (c *Conn) UpdatePost(ctx context.Context, id int64, title, body string) error {
	_, err := c.ExecContext(ctx, "UPDATE post SET title = ?, body = ? WHERE id = ?", title, body, id)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// DeletePost removes a post by ID.
func (c *Conn) DeletePost(ctx context.Context, id int64) error {
	_, err := c.ExecContext(ctx, "DELETE FROM post WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// CountPosts returns the number of posts.
func (c *Conn) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := c.GetContext(ctx, &count, "SELECT COUNT(*) FROM post"); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}
