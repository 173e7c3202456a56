// Package sqlstore builds bulk fetches over database/sql tables with sqlx.
//
//	byID := sqlstore.In[int, Product](db, `SELECT id, sku, name FROM products WHERE id IN (?)`)
//	loader, _ := batchload.New(batchload.Options[int, Product]{
//		Name:  "product.byID",
//		Fetch: batchload.Keyed(byID, func(p Product) int { return p.ID }),
//	})
package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DB is satisfied by *sqlx.DB and *sqlx.Tx.
type DB interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// In returns a query over every key of a batch. query must contain exactly one
// "IN (?)" placeholder, written with '?' whatever the driver's bindvar style.
// Rows come back in database order; pair In with batchload.Keyed or
// batchload.Grouped to match them to keys.
func In[K any, R any](db DB, query string) func(ctx context.Context, keys []K) ([]R, error) {
	return func(ctx context.Context, keys []K) ([]R, error) {
		if len(keys) == 0 {
			return nil, nil
		}
		q, args, err := sqlx.In(query, keys)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: expand IN: %w", err)
		}
		var rows []R
		if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(q), args...); err != nil {
			return nil, err
		}
		return rows, nil
	}
}

// Like returns a per-term search. Every '?' in query is bound to the pattern
// %term% with LIKE wildcards in term escaped, so query should use ESCAPE '\'.
// A blank term matches nothing and skips the query.
//
//	sqlstore.Like[Product](db, `SELECT * FROM products WHERE name LIKE ? ESCAPE '\' OR sku LIKE ? ESCAPE '\' ORDER BY id LIMIT 50`)
func Like[R any](db DB, query string) func(ctx context.Context, term string) ([]R, error) {
	n := strings.Count(query, "?")
	q := db.Rebind(query)
	return func(ctx context.Context, term string) ([]R, error) {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, nil
		}
		pattern := "%" + escapeLike(term) + "%"
		args := make([]any, n)
		for i := range args {
			args[i] = pattern
		}
		var rows []R
		if err := sqlx.SelectContext(ctx, db, &rows, q, args...); err != nil {
			return nil, err
		}
		return rows, nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
