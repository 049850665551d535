package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// boardRepo implements the board repository over SQLite. Each guild is one
// row; the single-statement INSERT OR REPLACE gives the per-guild atomic put.
type boardRepo struct {
	db *sql.DB
}

// NewBoardRepo creates a new board repository.
func NewBoardRepo(dbPath string) (repo.BoardRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS boards (
			guild_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			entries TEXT NOT NULL DEFAULT '{}',
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &boardRepo{db: db}, nil
}

// Get loads a guild's board config, defaulting to an empty config when the
// guild has no row yet.
func (r *boardRepo) Get(ctx context.Context, guildID string) (*domain.BoardConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT channel_id, entries FROM boards WHERE guild_id = ?
	`, guildID)

	var channelID, entriesJSON string
	err := row.Scan(&channelID, &entriesJSON)
	if err == sql.ErrNoRows {
		return domain.NewBoardConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query board: %w", err)
	}

	cfg := domain.NewBoardConfig()
	cfg.ChannelID = channelID
	if err := json.Unmarshal([]byte(entriesJSON), &cfg.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	if cfg.Entries == nil {
		cfg.Entries = make(map[string]*domain.StarEntry)
	}
	return cfg, nil
}

// Put writes a guild's board config back.
func (r *boardRepo) Put(ctx context.Context, guildID string, cfg *domain.BoardConfig) error {
	entriesJSON, err := json.Marshal(cfg.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO boards (guild_id, channel_id, entries, updated_at)
		VALUES (?, ?, ?, ?)
	`, guildID, cfg.ChannelID, string(entriesJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save board: %w", err)
	}
	return nil
}

// Remove deletes a guild's board record.
func (r *boardRepo) Remove(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM boards WHERE guild_id = ?`, guildID)
	if err != nil {
		return fmt.Errorf("failed to remove board: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *boardRepo) Close() error {
	return r.db.Close()
}
