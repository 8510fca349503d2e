package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sparks-fm/sparks/models"
)

// DB is a wrapper around sql.DB
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Initialize sets up the database tables
func (db *DB) Initialize() error {
	// Create users table
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT UNIQUE,
		spotify_id TEXT UNIQUE,
		access_token TEXT,
		refresh_token TEXT,
		token_expiry TIMESTAMP,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	// Log of exported playlists. Playlist creation is at-least-once: a
	// timeout after the provider created the playlist server-side is not
	// rolled back, so this log is how duplicates get spotted.
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		track_count INTEGER,
		created_at TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`)
	if err != nil {
		return err
	}

	return nil
}

// CreateUser adds a new user to the database
func (db *DB) CreateUser(user *models.User) (int64, error) {
	now := time.Now()

	result, err := db.Exec(`
	INSERT INTO users (username, email, spotify_id, access_token, refresh_token, token_expiry, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.SpotifyID, user.AccessToken, user.RefreshToken, user.TokenExpiry, now, now)

	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetUserByID retrieves a user by their internal id
func (db *DB) GetUserByID(userID int64) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
	SELECT id, username, email, spotify_id, access_token, refresh_token, token_expiry, created_at, updated_at
	FROM users WHERE id = ?`, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.SpotifyID,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserBySpotifyID retrieves a user by their Spotify ID
func (db *DB) GetUserBySpotifyID(spotifyID string) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
	SELECT id, username, email, spotify_id, access_token, refresh_token, token_expiry, created_at, updated_at
	FROM users WHERE spotify_id = ?`, spotifyID).Scan(
		&user.ID, &user.Username, &user.Email, &user.SpotifyID,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUserToken updates a user's Spotify tokens
func (db *DB) UpdateUserToken(userID int64, accessToken, refreshToken string, expiry time.Time) error {
	_, err := db.Exec(`
	UPDATE users SET access_token = ?, refresh_token = ?, token_expiry = ?, updated_at = ?
	WHERE id = ?`,
		accessToken, refreshToken, expiry, time.Now(), userID)

	return err
}

// RecordPlaylistExport logs a successful playlist export for a user.
func (db *DB) RecordPlaylistExport(userID int64, name, url string, trackCount int) error {
	_, err := db.Exec(`
	INSERT INTO playlists (user_id, name, url, track_count, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		userID, name, url, trackCount, time.Now())

	return err
}

// ExportedPlaylist is a row from the playlist export log.
type ExportedPlaylist struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	TrackCount int       `json:"trackCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GetExportedPlaylists returns a user's playlist export log, newest first.
func (db *DB) GetExportedPlaylists(userID int64, limit int) ([]ExportedPlaylist, error) {
	rows, err := db.Query(`
	SELECT id, name, url, track_count, created_at
	FROM playlists WHERE user_id = ?
	ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []ExportedPlaylist
	for rows.Next() {
		var p ExportedPlaylist
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.TrackCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	return playlists, rows.Err()
}
