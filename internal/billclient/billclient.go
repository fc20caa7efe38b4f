// Package billclient is the remote bill store: a thin resty client over the
// billed HTTP API, consumed by the login, submission and review components.
package billclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/httpclient"
	"github.com/DGouron/billed/internal/server/models"
)

// Remote failures surface as the opaque messages the front shows.
var (
	ErrBadRequest   = errors.New("Erreur 400")
	ErrUnauthorized = errors.New("Erreur 401")
	ErrNotFound     = errors.New("Erreur 404")
	ErrServer       = errors.New("Erreur 500")
)

// apiError maps a non-2xx response to its opaque error.
func apiError(statusCode int) error {
	switch statusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusInternalServerError:
		return ErrServer
	default:
		return fmt.Errorf("Erreur %d", statusCode) //nolint:err113
	}
}

type Client struct {
	log    *slog.Logger
	client *resty.Client
}

func New(opts ...Option) *Client {
	c := &Client{
		log:    slog.New(&slog.JSONHandler{}),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type Option func(c *Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.client.SetBaseURL(baseURL)
	}
}

// SetToken attaches the bearer token issued at login to every later call.
func (c *Client) SetToken(token string) {
	c.client.SetAuthToken(token)
}

// Login exchanges a credentials JSON document for a JWT.
func (c *Client) Login(ctx context.Context, credentialsJSON string) (string, error) {
	loginData := new(models.LoginResponse)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(credentialsJSON).
		SetResult(loginData).
		Post("/api/auth/login")
	if err != nil {
		return "", fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		return "", apiError(resp.StatusCode())
	}

	return loginData.JWT, nil
}

// Register creates a user account with the given role.
func (c *Client) Register(ctx context.Context, email, password string, role users.Role) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(models.RegisterRequest{
			Email:    email,
			Password: password,
			Type:     role.String(),
		}).
		Post("/api/user/register")
	if err != nil {
		return fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		return apiError(resp.StatusCode())
	}

	return nil
}

// CreateReceipt uploads a receipt image and returns the storage key and
// file URL to attach to a bill.
func (c *Client) CreateReceipt(ctx context.Context, fileName string, content []byte) (*models.ReceiptResponse, error) {
	receiptData := new(models.ReceiptResponse)

	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(content)).
		SetResult(receiptData).
		Post("/api/receipts")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		return nil, apiError(resp.StatusCode())
	}

	return receiptData, nil
}

// CreateBill persists a new bill from its wire payload.
func (c *Client) CreateBill(ctx context.Context, payload models.BillPayload) (*bills.Bill, error) {
	billData := new(models.BillPayload)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(billData).
		Post("/api/bills")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		return nil, apiError(resp.StatusCode())
	}

	bill, err := billData.ToBill()
	if err != nil {
		return nil, fmt.Errorf("billData.ToBill: %w", err)
	}

	return bill, nil
}

// ListBills fetches every bill of every user for the admin dashboard.
func (c *Client) ListBills(ctx context.Context) ([]*bills.Bill, error) {
	return c.listBills(ctx, "/api/dashboard/bills")
}

// GetBills fetches the bills of the authenticated user.
func (c *Client) GetBills(ctx context.Context) ([]*bills.Bill, error) {
	return c.listBills(ctx, "/api/bills")
}

func (c *Client) listBills(ctx context.Context, path string) ([]*bills.Bill, error) {
	payloads := make([]models.BillPayload, 0)

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&payloads).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		return nil, apiError(resp.StatusCode())
	}

	billList := make([]*bills.Bill, 0, len(payloads))

	for _, payload := range payloads {
		bill, err := payload.ToBill()
		if err != nil {
			return nil, fmt.Errorf("payload.ToBill: %w", err)
		}

		billList = append(billList, bill)
	}

	return billList, nil
}

// UpdateBill persists an admin decision: data is the JSON-encoded decided
// bill, selector the bill id.
func (c *Client) UpdateBill(ctx context.Context, data, selector string) (*bills.Bill, error) {
	billData := new(models.BillPayload)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(data).
		SetResult(billData).
		SetPathParams(map[string]string{
			"billID": selector,
		}).
		Put("/api/bills/{billID}")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		return nil, apiError(resp.StatusCode())
	}

	bill, err := billData.ToBill()
	if err != nil {
		return nil, fmt.Errorf("billData.ToBill: %w", err)
	}

	return bill, nil
}
