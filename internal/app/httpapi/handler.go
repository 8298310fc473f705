// Package httpapi exposes the invoicing services over a JSON REST API.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	app "github.com/bgfactura/invoicing/internal/app"
	"github.com/bgfactura/invoicing/internal/app/metrics"
	"github.com/bgfactura/invoicing/internal/app/storage"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/httputil"
	"github.com/bgfactura/invoicing/internal/logging"
	internalmw "github.com/bgfactura/invoicing/internal/middleware"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins   []string
	AuthRateLimit int
	AuthRateBurst int
	AuditLogPath  string
	AuditSize     int
	Version       string
	DB            Pinger
	// Done stops background housekeeping such as rate limiter cleanup.
	Done <-chan struct{}
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	log     *logging.Logger
	audit   *auditLog
	db      Pinger
	version string
	now     func() time.Time
}

// NewHandler returns the REST API with its middleware chain.
func NewHandler(application *app.Application, opts Options, log *logging.Logger) (http.Handler, error) {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	var sink auditSink
	fileSink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, err
	}
	if fileSink != nil {
		sink = fileSink
	}
	h := &handler{
		app:     application,
		log:     log,
		audit:   newAuditLog(opts.AuditSize, sink),
		db:      opts.DB,
		version: opts.Version,
		now:     time.Now,
	}

	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, r, apperrors.NotFound("Route"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	authMW := internalmw.NewAuthMiddleware(application.Auth, log, nil)
	limiter := internalmw.NewRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst, log)
	if opts.Done != nil {
		limiter.StartCleanup(5*time.Minute, opts.Done)
	}

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Handle("/register", limiter.Handler(http.HandlerFunc(h.register))).Methods(http.MethodPost)
	authRoutes.Handle("/login", limiter.Handler(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	account := authRoutes.NewRoute().Subrouter()
	account.Use(authMW.Handler, internalmw.RequireUserID)
	account.HandleFunc("/profile", h.profile).Methods(http.MethodGet)
	account.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPut)
	account.HandleFunc("/verify", h.verify).Methods(http.MethodGet)

	scoped := func(prefix string) *mux.Router {
		sub := api.PathPrefix(prefix).Subrouter()
		sub.Use(authMW.Handler, internalmw.RequireCompany, h.auditMiddleware)
		return sub
	}
	h.clientRoutes(scoped("/clients"))
	h.productRoutes(scoped("/products"))
	h.documentRoutes(scoped("/documents"))
	h.expenseRoutes(scoped("/expenses"))
	h.settingsRoutes(scoped("/settings"))
	scoped("/dashboard").HandleFunc("", h.dashboard).Methods(http.MethodGet)
	scoped("/audit").HandleFunc("", h.auditEntries).Methods(http.MethodGet)

	var root http.Handler = router
	root = internalmw.NewCORSMiddleware(opts.CORSOrigins).Handler(root)
	root = internalmw.NewTracingMiddleware(log).Handler(root)
	root = middleware.RealIP(root)
	root = middleware.Recoverer(root)
	return root, nil
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.WriteJSON(w, status, data)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status := apperrors.HTTPStatus(err); status >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).Error("request failed")
	}
	httputil.WriteError(w, r, err)
}

func (h *handler) decode(r *http.Request, dst interface{}) error {
	return httputil.DecodeJSON(r.Body, dst)
}

// companyID is always present behind RequireCompany.
func companyID(r *http.Request) int64 {
	id, _ := logging.GetCompanyID(r.Context())
	return id
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("invalid id %q", raw)
	}
	return id, nil
}

func listOptions(r *http.Request) storage.ListOptions {
	q := r.URL.Query()
	opts := storage.ListOptions{Search: strings.TrimSpace(q.Get("search"))}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			opts.Active = &active
		}
	}
	return opts.Normalize()
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type messageResponse struct {
	Message string `json:"message"`
}
