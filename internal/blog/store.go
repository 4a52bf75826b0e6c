// Package blog is the posts CRUD service the intake bot files issues
// against. It is deliberately small: a sqlite table and a JSON API.
package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound reports a post ID with no row.
var ErrNotFound = errors.New("post not found")

// Post is a stored blog post. CreatedAt is an ISO-8601 string to the
// second, matching what the API has always returned.
type Post struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Store wraps the posts table.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
)`

// OpenStore opens (creating if needed) the sqlite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create posts table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns all posts, newest first.
func (s *Store) List(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, content, created_at FROM posts ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Get returns one post by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, content, created_at FROM posts WHERE id = ?", id).
		Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return &p, nil
}

// Create inserts a post and returns the stored row.
func (s *Store) Create(ctx context.Context, title, content string) (*Post, error) {
	now := time.Now().Format("2006-01-02T15:04:05")
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (title, content, created_at) VALUES (?, ?, ?)",
		title, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read post id: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a post by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
