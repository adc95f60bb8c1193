package store

import (
	"errors"
	"strings"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// classify maps a driver error onto the store error taxonomy. Data and
// constraint errors (SQLSTATE classes 22 and 23) are integrity violations;
// everything else, including timeouts and cancellations, is unavailability.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Integrity(op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23") {
			if pgErr.Code == "23505" {
				return domain.Integrity(op, errors.Join(ErrConflict, err))
			}
			return domain.Integrity(op, err)
		}
	}
	return domain.Unavailable(op, err)
}
