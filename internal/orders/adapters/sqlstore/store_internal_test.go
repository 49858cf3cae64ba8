package sqlstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/dejobratic/orderflow/internal/database"
)

func TestRebind(t *testing.T) {
	query := "UPDATE orders SET status = ? WHERE order_id = ? AND status = ?"

	sqlite := New(&database.DB{Driver: database.DriverSQLite})
	assert.Equal(t, query, sqlite.rebind(query))

	pg := New(&database.DB{Driver: database.DriverPostgres})
	assert.Equal(t, "UPDATE orders SET status = $1 WHERE order_id = $2 AND status = $3", pg.rebind(query))
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, false},
		{"postgres unique", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
