package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/clipposter/internal/rowstore/migrations"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps every table in one row_store relation, one jsonb
// document per row. Refs are the row ids.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations applies the embedded schema migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, table string) ([]Row, error) {
	query := `SELECT id, fields FROM row_store WHERE table_name = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			ref int64
			raw []byte
		)
		if err := rows.Scan(&ref, &raw); err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		values := make(map[string]string)
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", ref, table, err)
		}
		result = append(result, Row{Ref: ref, Values: values})
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return result, nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, table string, ref int64, fields map[string]string) error {
	query := `
		UPDATE row_store
		SET fields = fields || $3::jsonb,
			updated_at = NOW()
		WHERE table_name = $1 AND id = $2
	`

	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, table, ref, string(patch))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, table string, values map[string]string) (int64, error) {
	query := `
		INSERT INTO row_store (table_name, fields)
		VALUES ($1, $2::jsonb)
		RETURNING id
	`

	doc, err := json.Marshal(values)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, table, string(doc)).Scan(&id); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, table string, ref int64, field, old, value string) (bool, error) {
	query := `
		UPDATE row_store
		SET fields = jsonb_set(fields, ARRAY[$3::text], to_jsonb($5::text), true),
			updated_at = NOW()
		WHERE table_name = $1 AND id = $2 AND COALESCE(fields->>$3, '') = $4
	`

	result, err := s.db.ExecContext(ctx, query, table, ref, field, old, value)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}
