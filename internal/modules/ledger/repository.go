// Package ledger persists fund positions, one distribution record per fund and
// month, and the history of batch runs. All operations run against an explicit
// database.Querier so the caller owns the transaction boundary.
package ledger

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles ledger.db operations
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s value %q: %w", column, value, err)
	}
	return d, nil
}

func parseNullDecimal(column string, value sql.NullString) (decimal.Decimal, error) {
	if !value.Valid {
		return decimal.Zero, nil
	}
	return parseDecimal(column, value.String)
}
