package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/DGouron/billed/internal/auth"
	"github.com/DGouron/billed/internal/domain/bills"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/errmsg"
	"github.com/DGouron/billed/internal/receipts"
	"github.com/DGouron/billed/internal/server/models"
	"github.com/DGouron/billed/internal/storage"
)

// maxReceiptSize caps receipt uploads at 10 MiB.
const maxReceiptSize = 10 << 20

type Handlers struct {
	storage  storage.Storage
	vault    *receipts.Vault
	log      *slog.Logger
	auth     *auth.JWTAuth
	validate *validator.Validate
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, vault *receipts.Vault, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage:  store,
		vault:    vault,
		log:      slog.New(&slog.JSONHandler{}),
		auth:     auth.NewJWTAuth([]byte("")),
		validate: validator.New(),
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &models.JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &models.JSONResponse{Message: "ok"})
}

func (h *Handlers) UserRegister(w http.ResponseWriter, r *http.Request) {
	var registerPayload models.RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&registerPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if err := h.validate.Struct(registerPayload); err != nil {
		h.log.Error("validate.Struct()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	role, err := users.ParseRole(registerPayload.Type)
	if err != nil {
		h.log.Error("users.ParseRole()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	user, err := users.CreateUser(registerPayload.Email, registerPayload.Password, role)
	if err != nil {
		h.log.Error("users.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.log.Error("storage.CreateUser()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserAlreadyExists)

			return
		}

		h.log.Error("storage.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.Email(), user.Role())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	handleJSONResponse(w, http.StatusOK, &models.LoginResponse{JWT: token})
}

func (h *Handlers) UserLogin(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if err := h.validate.Struct(userPayload); err != nil {
		h.log.Error("validate.Struct()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	user, err := h.storage.GetUser(r.Context(), userPayload.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.log.Error("storage.GetUser()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.GetUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(userPayload.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserCredentialsInvalid)

			return
		}

		h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.Email(), user.Role())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	handleJSONResponse(w, http.StatusOK, &models.LoginResponse{JWT: token})
}

func (h *Handlers) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		h.log.Error("r.ParseMultipartForm()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Error("r.FormFile()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.log.Error("io.ReadAll()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	key, fileURL, err := h.vault.Put(header.Filename, content)
	if err != nil {
		if errors.Is(err, bills.ErrBillReceiptExtInvalid) {
			h.log.Error("vault.Put()", slog.Any("error", err))
			handleError(w, errmsg.ErrReceiptFormatInvalid)

			return
		}

		h.log.Error("vault.Put()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, &models.ReceiptResponse{
		FileURL: fileURL,
		Key:     key,
	})
}

func (h *Handlers) GetReceipt(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "receiptKey")

	fileName, content, err := h.vault.Get(key)
	if err != nil {
		if errors.Is(err, receipts.ErrReceiptNotFound) {
			h.log.Error("vault.Get()", slog.Any("error", err))
			handleError(w, errmsg.ErrReceiptNotFound)

			return
		}

		h.log.Error("vault.Get()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("content-type", receipts.ContentType(fileName))
	w.WriteHeader(http.StatusOK)
	w.Write(content) //nolint:errcheck
}

func (h *Handlers) CreateBill(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	// Bills are scoped to the JWT sub claim, not the payload email.
	userEmail := token.Subject()

	var billPayload models.BillPayload

	if err := json.NewDecoder(r.Body).Decode(&billPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if err := h.validate.Struct(billPayload); err != nil {
		h.log.Error("validate.Struct()", slog.Any("error", err))
		handleError(w, errmsg.ErrBillPayloadInvalid)

		return
	}

	vat, err := billPayload.ParseVAT()
	if err != nil {
		h.log.Error("billPayload.ParseVAT()", slog.Any("error", err))
		handleError(w, errmsg.ErrBillPayloadInvalid)

		return
	}

	bill, err := bills.CreateBill(
		userEmail, billPayload.Name, billPayload.Type, billPayload.Date,
		billPayload.Amount, vat, billPayload.Pct, billPayload.Commentary,
		billPayload.FileURL, billPayload.FileName,
	)
	if err != nil {
		h.log.Error("bills.CreateBill()", slog.Any("error", err))
		handleError(w, errmsg.ErrBillPayloadInvalid)

		return
	}

	if err := h.storage.CreateBill(r.Context(), bill); err != nil {
		if errors.Is(err, storage.ErrBillAlreadyExists) {
			h.log.Error("storage.CreateBill()", slog.Any("error", err))
			handleError(w, errmsg.ErrBillAlreadyExists)

			return
		}

		h.log.Error("storage.CreateBill()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.BillPayloadFrom(bill))
}

func (h *Handlers) GetBills(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userBills, err := h.storage.GetBillsByEmail(r.Context(), token.Subject())
	if err != nil {
		h.log.Error("storage.GetBillsByEmail()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.BillPayloadsFrom(userBills))
}

func (h *Handlers) GetDashboardBills(w http.ResponseWriter, r *http.Request) {
	allBills, err := h.storage.ListBills(r.Context())
	if err != nil {
		h.log.Error("storage.ListBills()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.BillPayloadsFrom(allBills))
}

func (h *Handlers) ReviewBill(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "billID")

	var billPayload models.BillPayload

	if err := json.NewDecoder(r.Body).Decode(&billPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	status, err := bills.ParseStatus(billPayload.Status)
	if err != nil {
		h.log.Error("bills.ParseStatus()", slog.Any("error", err))
		handleError(w, errmsg.ErrBillDecisionInvalid)

		return
	}

	bill, err := h.storage.GetBill(r.Context(), billID)
	if err != nil {
		if errors.Is(err, storage.ErrBillNotFound) {
			h.log.Error("storage.GetBill()", slog.Any("error", err))
			handleError(w, errmsg.ErrBillNotFound)

			return
		}

		h.log.Error("storage.GetBill()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	decided, err := bill.Reviewed(status, billPayload.CommentAdmin)
	if err != nil {
		h.log.Error("bill.Reviewed()", slog.Any("error", err))
		handleError(w, errmsg.ErrBillDecisionInvalid)

		return
	}

	if err := h.storage.ReviewBill(r.Context(), decided); err != nil {
		if errors.Is(err, storage.ErrBillStatusInvalid) {
			h.log.Error("storage.ReviewBill()", slog.Any("error", err))
			handleError(w, errmsg.ErrBillDecisionInvalid)

			return
		}

		if errors.Is(err, storage.ErrBillNotFound) {
			h.log.Error("storage.ReviewBill()", slog.Any("error", err))
			handleError(w, errmsg.ErrBillNotFound)

			return
		}

		h.log.Error("storage.ReviewBill()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.BillPayloadFrom(decided))
}
