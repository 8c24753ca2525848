// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mediameter/internal/platform/database/schema"
	"github.com/taibuivan/mediameter/internal/platform/dberr"
)

const resourceName = "Saved search"

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed saved search store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var table = schema.SavedSearch

// selectColumns lists the columns scanned by [scanSavedSearch], in order.
var selectColumns = fmt.Sprintf("%s, %s, %s, %s, %s, %s",
	table.ID, table.Shortcode, table.Name, table.Path, table.CreatedBy, table.CreatedAt)

func scanSavedSearch(row pgx.Row, extra ...any) (*SavedSearch, error) {
	search := &SavedSearch{}
	dest := append([]any{
		&search.ID, &search.Shortcode, &search.Name, &search.Path, &search.CreatedBy, &search.Timestamp,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return search, nil
}

// Create implements [Repository].
func (repository *PostgresRepository) Create(context context.Context, search *SavedSearch) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s;
	`,
		table.Table,
		table.ID, table.Shortcode, table.Name, table.Path, table.CreatedBy,
		table.CreatedAt,
	)

	err := repository.db.QueryRow(context, query,
		search.ID, search.Shortcode, search.Name, search.Path, search.CreatedBy,
	).Scan(&search.Timestamp)
	return dberr.Wrap(err, resourceName)
}

/*
List returns saved searches, newest first.

Description: Uses COUNT(*) OVER() so the total comes back with the page.
*/
func (repository *PostgresRepository) List(context context.Context, limit, offset int) ([]*SavedSearch, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM %s
		ORDER BY %s DESC
		LIMIT $1 OFFSET $2;
	`, selectColumns, table.Table, table.CreatedAt)

	rows, err := repository.db.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, resourceName)
	}
	defer rows.Close()

	var (
		searches []*SavedSearch
		total    int
	)
	for rows.Next() {
		search, err := scanSavedSearch(rows, &total)
		if err != nil {
			return nil, 0, dberr.Wrap(err, resourceName)
		}
		searches = append(searches, search)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, resourceName)
	}

	return searches, total, nil
}

// FindByShortcode implements [Repository].
func (repository *PostgresRepository) FindByShortcode(context context.Context, shortcode string) (*SavedSearch, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1;
	`, selectColumns, table.Table, table.Shortcode)

	search, err := scanSavedSearch(repository.db.QueryRow(context, query, shortcode))
	if err != nil {
		return nil, dberr.Wrap(err, resourceName)
	}
	return search, nil
}

// Delete implements [Repository].
func (repository *PostgresRepository) Delete(context context.Context, shortcode string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1;`, table.Table, table.Shortcode)

	tag, err := repository.db.Exec(context, query, shortcode)
	if err != nil {
		return dberr.Wrap(err, resourceName)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, resourceName)
	}
	return nil
}
