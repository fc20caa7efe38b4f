package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/storage"
	"github.com/DGouron/billed/internal/storage/dbmodels"
)

var _ storage.Storage = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

func (s *Storage) Bootstrap(ctx context.Context) error {
	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		s.db,
		os.DirFS("internal/storage/pgstorage/migrations"),
	)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	// Connection refused error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return true
	}

	return false
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(operation func() error) error {
	// Retry count
	retryCount := 3

	// Initial retry wait time
	var retryWaitTime time.Duration

	// Define the interval between retries
	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

			time.Sleep(retryWaitTime)
		} else {
			return fmt.Errorf("%w", err)
		}
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

func (s *Storage) Ping(ctx context.Context) error {
	err := WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	err := WithRetry(func() error {
		query := `INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3)`

		if _, err := s.db.ExecContext(ctx, query, usr.Email(), usr.PasswordHash(), usr.Role().String()); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrUserAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetUser(ctx context.Context, email string) (*users.User, error) {
	dbUser := new(dbmodels.User)

	err := WithRetry(func() error {
		query := `SELECT email, password_hash, role FROM users WHERE email = $1`

		row := s.db.QueryRowContext(ctx, query, email)

		if err := row.Scan(&dbUser.Email, &dbUser.PasswordHash, &dbUser.Role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	role, err := users.ParseRole(dbUser.Role)
	if err != nil {
		return nil, fmt.Errorf("users.ParseRole: %w", err)
	}

	user, err := users.NewUser(dbUser.Email, dbUser.PasswordHash, role)
	if err != nil {
		return nil, fmt.Errorf("users.NewUser: %w", err)
	}

	return user, nil
}

func (s *Storage) CreateBill(ctx context.Context, bill *bills.Bill) error {
	err := WithRetry(func() error {
		query := `INSERT INTO bills` +
			` (id, email, name, category, date, amount, vat, pct, commentary, file_url, file_name, status, comment_admin)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

		if _, err := s.db.ExecContext(ctx, query,
			bill.ID(), bill.Email(), bill.Name(), bill.Category(), bill.Date(),
			bill.Amount(), bill.VAT(), bill.Pct(), bill.Commentary(),
			bill.FileURL(), bill.FileName(), bill.Status().String(), bill.CommentAdmin(),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrBillAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetBill(ctx context.Context, id string) (*bills.Bill, error) {
	dbBill := new(dbmodels.Bill)

	err := WithRetry(func() error {
		query := `SELECT id, email, name, category, date, amount, vat, pct, commentary,` +
			` file_url, file_name, status, comment_admin FROM bills WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := scanBillRow(row, dbBill); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBillNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return billFromDBModel(dbBill)
}

func (s *Storage) GetBillsByEmail(ctx context.Context, email string) ([]*bills.Bill, error) {
	dbBills := make([]*dbmodels.Bill, 0)

	err := WithRetry(func() error {
		query := `SELECT id, email, name, category, date, amount, vat, pct, commentary,` +
			` file_url, file_name, status, comment_admin FROM bills` +
			` WHERE email = $1 ORDER BY date DESC, id`

		rows, err := s.db.QueryContext(ctx, query, email)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbBill := new(dbmodels.Bill)

			if err := scanBillRow(rows, dbBill); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbBills = append(dbBills, dbBill)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return billsFromDBModels(dbBills)
}

func (s *Storage) GetBillsByStatus(ctx context.Context, statuses ...bills.Status) ([]*bills.Bill, error) {
	dbBills := make([]*dbmodels.Bill, 0)

	statusNames := make([]string, len(statuses))
	for i, status := range statuses {
		statusNames[i] = status.String()
	}

	err := WithRetry(func() error {
		query := `SELECT id, email, name, category, date, amount, vat, pct, commentary,` +
			` file_url, file_name, status, comment_admin FROM bills`

		if len(statusNames) > 0 {
			query += ` WHERE status = ANY($1)`
		}

		query += ` ORDER BY date DESC, id`

		var (
			rows *sql.Rows
			err  error
		)

		if len(statusNames) > 0 {
			rows, err = s.db.QueryContext(ctx, query, pq.Array(statusNames))
		} else {
			rows, err = s.db.QueryContext(ctx, query)
		}

		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbBill := new(dbmodels.Bill)

			if err := scanBillRow(rows, dbBill); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbBills = append(dbBills, dbBill)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return billsFromDBModels(dbBills)
}

func (s *Storage) ListBills(ctx context.Context) ([]*bills.Bill, error) {
	return s.GetBillsByStatus(ctx)
}

func (s *Storage) ReviewBill(ctx context.Context, bill *bills.Bill) error {
	if bill.Status() == bills.StatusPending {
		return storage.ErrBillStatusInvalid
	}

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		var status string

		row := tx.QueryRowContext(ctx, `SELECT status FROM bills WHERE id = $1 FOR UPDATE`, bill.ID())
		if err := row.Scan(&status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBillNotFound
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE bills SET status = $1, comment_admin = $2 WHERE id = $3`,
			bill.Status().String(), bill.CommentAdmin(), bill.ID(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBillRow(row rowScanner, dbBill *dbmodels.Bill) error {
	return row.Scan(
		&dbBill.ID, &dbBill.Email, &dbBill.Name, &dbBill.Category, &dbBill.Date,
		&dbBill.Amount, &dbBill.VAT, &dbBill.Pct, &dbBill.Commentary,
		&dbBill.FileURL, &dbBill.FileName, &dbBill.Status, &dbBill.CommentAdmin,
	)
}

func billFromDBModel(dbBill *dbmodels.Bill) (*bills.Bill, error) {
	bill, err := bills.NewBill(
		dbBill.ID,
		dbBill.Email,
		dbBill.Name,
		dbBill.Category,
		dbBill.Date.Format(bills.DateLayout),
		dbBill.Amount,
		dbBill.VAT,
		dbBill.Pct,
		dbBill.Commentary,
		dbBill.FileURL,
		dbBill.FileName,
		bills.Status(dbBill.Status),
		dbBill.CommentAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("bills.NewBill: %w", err)
	}

	return bill, nil
}

func billsFromDBModels(dbBills []*dbmodels.Bill) ([]*bills.Bill, error) {
	billList := make([]*bills.Bill, 0, len(dbBills))

	for _, dbBill := range dbBills {
		bill, err := billFromDBModel(dbBill)
		if err != nil {
			return nil, err
		}

		billList = append(billList, bill)
	}

	return billList, nil
}
