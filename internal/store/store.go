package store

import (
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/jmoiron/sqlx"
)

// Rows per multi-row INSERT, well under SQLite's bound variable limit.
const insertChunk = 100

// queryer picks the transaction when one is given, otherwise the pool.
func queryer(db *sqlx.DB, tx *sqlx.Tx) sqlx.QueryerContext {
	if tx != nil {
		return tx
	}
	return db
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return bracket.Errorf(bracket.KindNotFound, "%s %v not found", what, id)
	}
	return err
}

func chunks[T any](rows []T, size int) [][]T {
	var out [][]T
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}
