package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/unrolled/secure"

	"github.com/DGouron/billed/internal/auth"
	"github.com/DGouron/billed/internal/domain/users"
	"github.com/DGouron/billed/internal/errmsg"
	"github.com/DGouron/billed/internal/receipts"
	"github.com/DGouron/billed/internal/server/handlers"
	"github.com/DGouron/billed/internal/storage"
)

type Options struct {
	log    *slog.Logger
	secret []byte
}

func NewRouter(store storage.Storage, vault *receipts.Vault, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:    slog.New(&slog.JSONHandler{}),
		secret: []byte(""),
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
		secureMiddleware.Handler,
	)

	h := handlers.NewHandlers(store, vault,
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
	)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

		r.Post("/api/user/register", h.UserRegister)
		r.Post("/api/auth/login", h.UserLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/bills", h.GetBills)
		r.Post("/api/bills", h.CreateBill)
		r.Post("/api/receipts", h.CreateReceipt)
		r.Get("/api/receipts/{receiptKey}", h.GetReceipt)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Get("/api/dashboard/bills", h.GetDashboardBills)
			r.Put("/api/bills/{billID}", h.ReviewBill)
		})
	})

	return r
}

// adminOnly rejects tokens whose role claim is not Admin.
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		role, _ := claims[auth.RoleClaimKey].(string)
		if role != users.RoleAdmin.String() {
			http.Error(w, errmsg.ErrUserRoleForbidden.Error(), http.StatusForbidden)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}
