package kb

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PostgresStore keeps the index in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pgx pool and runs schema migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("kb postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, doc Document, chunks []StoredChunk) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM kb_chunks WHERE locator = $1`, doc.Locator)
	batch.Queue(`INSERT INTO kb_documents (locator, content_type, title, chunk_count, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (locator) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			title        = EXCLUDED.title,
			chunk_count  = EXCLUDED.chunk_count,
			added_at     = EXCLUDED.added_at`,
		doc.Locator, string(doc.ContentType), doc.Title, len(chunks), doc.AddedAt)
	for _, c := range chunks {
		batch.Queue(`INSERT INTO kb_chunks (locator, idx, text, vector) VALUES ($1, $2, $3, $4)`,
			doc.Locator, c.Index, c.Text, encodeVector(c.Vector))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("replace %s: %w", doc.Locator, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Chunks(ctx context.Context) ([]StoredChunk, error) {
	rows, err := s.pool.Query(ctx, `SELECT c.locator, COALESCE(d.title, ''), c.idx, c.text, c.vector
		FROM kb_chunks c JOIN kb_documents d ON d.locator = c.locator
		ORDER BY c.locator, c.idx`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StoredChunk, error) {
		var c StoredChunk
		var blob []byte
		err := row.Scan(&c.Locator, &c.Title, &c.Index, &c.Text, &blob)
		c.Vector = decodeVector(blob)
		return c, err
	})
}

func (s *PostgresStore) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT locator, content_type, COALESCE(title, ''), chunk_count, added_at
		FROM kb_documents ORDER BY added_at DESC, locator`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) {
		var d Document
		var ct string
		err := row.Scan(&d.Locator, &ct, &d.Title, &d.Chunks, &d.AddedAt)
		d.ContentType = ContentType(ct)
		return d, err
	})
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
