package kb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the index in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the index database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("kb: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kb: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("kb: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		locator      TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		title        TEXT,
		chunk_count  INTEGER NOT NULL DEFAULT 0,
		added_at     TEXT NOT NULL
	)`); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		locator TEXT NOT NULL REFERENCES documents(locator) ON DELETE CASCADE,
		idx     INTEGER NOT NULL,
		text    TEXT NOT NULL,
		vector  BLOB NOT NULL,
		PRIMARY KEY (locator, idx)
	)`)
	return err
}

func (s *SQLiteStore) Replace(ctx context.Context, doc Document, chunks []StoredChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE locator = ?`, doc.Locator); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents (locator, content_type, title, chunk_count, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(locator) DO UPDATE SET
			content_type = excluded.content_type,
			title        = excluded.title,
			chunk_count  = excluded.chunk_count,
			added_at     = excluded.added_at`,
		doc.Locator, string(doc.ContentType), doc.Title, len(chunks), doc.AddedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (locator, idx, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, doc.Locator, c.Index, c.Text, encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Chunks(ctx context.Context) ([]StoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.locator, COALESCE(d.title, ''), c.idx, c.text, c.vector
		FROM chunks c JOIN documents d ON d.locator = c.locator
		ORDER BY c.locator, c.idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredChunk
	for rows.Next() {
		var c StoredChunk
		var blob []byte
		if err := rows.Scan(&c.Locator, &c.Title, &c.Index, &c.Text, &blob); err != nil {
			return nil, err
		}
		c.Vector = decodeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT locator, content_type, COALESCE(title, ''), chunk_count, added_at
		FROM documents ORDER BY added_at DESC, locator`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var ct, added string
		if err := rows.Scan(&d.Locator, &ct, &d.Title, &d.Chunks, &added); err != nil {
			return nil, err
		}
		d.ContentType = ContentType(ct)
		d.AddedAt, _ = time.Parse(time.RFC3339, added)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
