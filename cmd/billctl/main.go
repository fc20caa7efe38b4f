// billctl drives the billed API from the command line: it logs a user in,
// submits expense reports and, for admins, reviews them, through the same
// components the application front uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"

	"github.com/DGouron/billed/internal/billclient"
	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/httpclient"
	"github.com/DGouron/billed/internal/logger"
	"github.com/DGouron/billed/internal/login"
	"github.com/DGouron/billed/internal/navigation"
	"github.com/DGouron/billed/internal/review"
	"github.com/DGouron/billed/internal/session"
	"github.com/DGouron/billed/internal/submission"
)

type config struct {
	APIAddr          string   `env:"BILLED_API_ADDR"`
	RedisAddr        string   `env:"REDIS_ADDR"`
	LogLevel         string   `env:"LOG_LEVEL"`
	Email            string   `env:"BILLED_EMAIL"`
	Password         string   `env:"BILLED_PASSWORD"`
	Role             string   `env:"BILLED_ROLE"`
	ExcludedAccounts []string `env:"EXCLUDED_ACCOUNTS" envSeparator:","`
	ReviewFailOpen   bool     `env:"REVIEW_FAIL_OPEN"`
}

const usage = `usage: billctl <command> [flags]

commands:
  login      resolve the role and open a session
  submit     submit a new expense report
  bills      list your own bills
  dashboard  list every bill by status group (admin)
  accept     accept a bill (admin)
  refuse     refuse a bill (admin)

environment:
  BILLED_API_ADDR, BILLED_EMAIL, BILLED_PASSWORD, BILLED_ROLE,
  REDIS_ADDR, LOG_LEVEL, EXCLUDED_ACCOUNTS, REVIEW_FAIL_OPEN
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "billctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("missing command")
	}

	cfg := config{
		APIAddr:  "http://localhost:8080",
		LogLevel: "warn",
		Role:     users.RoleEmployee.String(),
	}

	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("env.Parse: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logger.LogFormatText),
		logger.WithOutput(os.Stderr),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}

	client := billclient.New(
		billclient.WithClient(httpclient.New(
			httpclient.WithBaseURL(cfg.APIAddr),
			httpclient.WithRetryCount(2),
			httpclient.WithRetryWaitTime(500*time.Millisecond),
		)),
		billclient.WithLogger(logg),
	)

	app := &cli{
		cfg:      cfg,
		log:      logg,
		client:   client,
		sessions: sessions,
		nav:      navigation.NewRecorder(),
	}

	switch cmd := os.Args[1]; cmd {
	case "login":
		return app.login(ctx, os.Args[2:])
	case "submit":
		return app.submit(ctx, os.Args[2:])
	case "bills":
		return app.listOwnBills(ctx)
	case "dashboard":
		return app.dashboard(ctx)
	case "accept":
		return app.decide(ctx, os.Args[2:], bills.StatusAccepted)
	case "refuse":
		return app.decide(ctx, os.Args[2:], bills.StatusRefused)
	default:
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// newSessionStore picks redis when an address is configured, so the session
// record survives across invocations the way the browser storage did.
func newSessionStore(ctx context.Context, cfg config) (session.Store, error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(), nil
	}

	store, err := session.NewRedisStore(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("session.NewRedisStore: %w", err)
	}

	return store, nil
}

type cli struct {
	cfg      config
	log      *slog.Logger
	client   *billclient.Client
	sessions session.Store
	nav      *navigation.Recorder
}

// authenticate runs the login flow and leaves the bearer token on the client.
func (c *cli) authenticate(ctx context.Context) (session.Record, error) {
	role, err := users.ParseRole(c.cfg.Role)
	if err != nil {
		return session.Record{}, err
	}

	authenticator := login.New(c.client, c.sessions, c.nav, login.WithLogger(c.log))

	record, token, err := authenticator.Login(ctx, role, c.cfg.Email, c.cfg.Password)
	if err != nil {
		return session.Record{}, err
	}

	c.client.SetToken(token)

	return record, nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	fs.StringVar(&c.cfg.Email, "email", c.cfg.Email, "user email")
	fs.StringVar(&c.cfg.Password, "password", c.cfg.Password, "user password")
	fs.StringVar(&c.cfg.Role, "role", c.cfg.Role, "Employee or Admin")
	fs.Parse(args) //nolint:errcheck

	record, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("connected as %s (%s), landing on %s\n",
		record.Email, record.Type, c.nav.Current())

	return nil
}

func (c *cli) submit(ctx context.Context, args []string) error {
	var form submission.Form

	var receiptPath string

	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	fs.StringVar(&form.Name, "name", "", "expense name")
	fs.StringVar(&form.Category, "category", "", "expense category")
	fs.StringVar(&form.Date, "date", time.Now().Format(bills.DateLayout), "expense date (yyyy-mm-dd)")
	fs.StringVar(&form.Amount, "amount", "", "amount (TTC)")
	fs.StringVar(&form.VAT, "vat", "", "VAT amount")
	fs.StringVar(&form.Pct, "pct", "", "VAT percentage")
	fs.StringVar(&form.Commentary, "commentary", "", "commentary")
	fs.StringVar(&receiptPath, "file", "", "receipt image path (png, jpg, jpeg)")
	fs.Parse(args) //nolint:errcheck

	if _, err := c.authenticate(ctx); err != nil {
		return err
	}

	content, err := os.ReadFile(receiptPath)
	if err != nil {
		return fmt.Errorf("os.ReadFile: %w", err)
	}

	sub := submission.New(c.client, c.sessions, c.nav, submission.WithLogger(c.log))

	if err := sub.HandleFileChange(ctx, filepath.Base(receiptPath), content); err != nil {
		return err
	}

	bill, err := sub.Submit(ctx, form)
	if err != nil {
		return err
	}

	fmt.Printf("submitted bill %s (%s, %s €), status %s\n",
		bill.ID(), bill.Name(), bill.Amount(), bill.Status())

	return nil
}

func (c *cli) listOwnBills(ctx context.Context) error {
	if _, err := c.authenticate(ctx); err != nil {
		return err
	}

	billList, err := c.client.GetBills(ctx)
	if err != nil {
		return err
	}

	for _, bill := range billList {
		fmt.Printf("%s  %-10s  %s  %s €  %s\n",
			bill.ID(), bill.Status(), bill.DateString(), bill.Amount(), bill.Name())
	}

	return nil
}

func (c *cli) newBoard(ctx context.Context) (*review.Board, error) {
	record, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	board := review.New(c.client, c.nav,
		review.WithLogger(c.log),
		review.WithAdminEmail(record.Email),
		review.WithExcludedAccounts(c.cfg.ExcludedAccounts),
		review.WithFailOpen(c.cfg.ReviewFailOpen),
	)

	if err := board.Refresh(ctx); err != nil {
		return nil, err
	}

	return board, nil
}

func (c *cli) dashboard(ctx context.Context) error {
	board, err := c.newBoard(ctx)
	if err != nil {
		return err
	}

	for _, status := range bills.Statuses() {
		view, err := board.ToggleGroup(ctx, status)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%d)\n", status, len(view.Cards))

		for _, card := range view.Cards {
			fmt.Printf("  %s  %s %s  %s  %s  %s\n",
				card.ID, card.FirstName, card.LastName, card.Date, card.Amount, card.Name)
		}
	}

	return nil
}

func (c *cli) decide(ctx context.Context, args []string, status bills.Status) error {
	var id, comment string

	fs := flag.NewFlagSet(status.String(), flag.ExitOnError)
	fs.StringVar(&id, "id", "", "bill id")
	fs.StringVar(&comment, "comment", "", "admin commentary")
	fs.Parse(args) //nolint:errcheck

	board, err := c.newBoard(ctx)
	if err != nil {
		return err
	}

	if _, err := board.OpenTicket(id); err != nil {
		return err
	}

	if status == bills.StatusAccepted {
		err = board.Accept(ctx, id, comment)
	} else {
		err = board.Refuse(ctx, id, comment)
	}

	if err != nil {
		return err
	}

	fmt.Printf("bill %s %s\n", id, status)

	return nil
}
