package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dynamock/dynamock/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS endpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			method_http TEXT NOT NULL DEFAULT 'GET',
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(url, method_http)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_endpoints_url ON endpoints(url)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanEndpoint(row interface{ Scan(...interface{}) error }) (*models.Endpoint, error) {
	var ep models.Endpoint
	var data string
	err := row.Scan(&ep.ID, &ep.URL, &ep.MethodHTTP, &data, &ep.CreatedAt, &ep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ep.Data = json.RawMessage(data)
	return &ep, nil
}

func (s *SQLiteStorage) Upsert(ctx context.Context, url, method string, data json.RawMessage) (*models.Endpoint, bool, error) {
	// A single INSERT ... ON CONFLICT keeps concurrent writers for the
	// same key from ever seeing a duplicate-key error; the RETURNING row
	// is the final persisted state either way.
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO endpoints (url, method_http, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url, method_http) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		 RETURNING id, url, method_http, data, created_at, updated_at`,
		url, method, string(data), now, now,
	)

	ep, err := scanEndpoint(row)
	if err != nil {
		return nil, false, err
	}
	// Inserts leave both timestamps equal to the value bound above;
	// updates keep the older created_at.
	return ep, ep.CreatedAt.Equal(ep.UpdatedAt), nil
}

func (s *SQLiteStorage) FindOne(ctx context.Context, url, method string) (*models.Endpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, method_http, data, created_at, updated_at FROM endpoints WHERE url = ? AND method_http = ?`,
		url, method)
	ep, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ep, err
}

func (s *SQLiteStorage) FindOneByPath(ctx context.Context, url string) (*models.Endpoint, error) {
	// Legacy path-only lookup. Several methods may share a url under the
	// composite key; prefer the GET mapping, then the freshest row.
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, method_http, data, created_at, updated_at FROM endpoints
		 WHERE url = ?
		 ORDER BY (method_http = 'GET') DESC, updated_at DESC
		 LIMIT 1`,
		url)
	ep, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ep, err
}

func (s *SQLiteStorage) FindAll(ctx context.Context) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, method_http, data, created_at, updated_at FROM endpoints ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, *ep)
	}
	return endpoints, rows.Err()
}

func (s *SQLiteStorage) DeleteByPath(ctx context.Context, url string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE url = ?`, url)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
