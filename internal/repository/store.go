package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need, so the
// same repository code runs inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store groups the repositories over one connection pool and provides a
// transactional scope spanning several of them.
type Store interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Wishlists() WishlistRepository

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise,
	// including when fn panics. Calling WithTx on a transaction-bound Store
	// reuses the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	db   *sql.DB
	q    DBTX
	inTx bool
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db, q: db}
}

func (s *sqlStore) Users() UserRepository                 { return NewUserRepository(s.q) }
func (s *sqlStore) RefreshTokens() RefreshTokenRepository { return NewRefreshTokenRepository(s.q) }
func (s *sqlStore) Products() ProductRepository           { return NewProductRepository(s.q) }
func (s *sqlStore) Carts() CartRepository                 { return NewCartRepository(s.q) }
func (s *sqlStore) Orders() OrderRepository               { return NewOrderRepository(s.q) }
func (s *sqlStore) Wishlists() WishlistRepository         { return NewWishlistRepository(s.q) }

func (s *sqlStore) WithTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(&sqlStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// constraintViolation reports whether err is a PostgreSQL error with the given
// SQLSTATE code raised by constraint. An empty constraint matches any.
func constraintViolation(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code && (constraint == "" || pgErr.ConstraintName == constraint)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
