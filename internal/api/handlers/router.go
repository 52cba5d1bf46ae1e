package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers bundles every resource handler the router mounts.
type Handlers struct {
	Auth           *AuthHandler
	Users          *UsersHandler
	Ledger         *LedgerHandler
	Reimbursements *ReimbursementsHandler
	Analytics      *AnalyticsHandler
	Activity       *ActivityHandler
	Receipts       *ReceiptsHandler
	Inventory      *InventoryHandler
	Recipes        *RecipesHandler
	Jobs           *JobsHandler
}

// DefaultMaxUploadBytes caps upload bodies when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// RouterConfig carries the middleware settings.
type RouterConfig struct {
	FrontendURL    string
	MaxUploadBytes int64
}

// NewRouter mounts the API under /api. Login, health, metrics and receipt
// images are public; everything else needs a bearer token.
func NewRouter(h Handlers, authn middleware.Authenticator, cfg RouterConfig, log zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/receipts/image/{name:.+}", h.Receipts.Image).Methods(http.MethodGet)

	p := api.NewRoute().Subrouter()
	p.Use(middleware.Auth(authn, log))

	p.HandleFunc("/auth/me", h.Auth.Me).Methods(http.MethodGet)

	p.HandleFunc("/users", h.Users.List).Methods(http.MethodGet)
	p.HandleFunc("/users", h.Users.Create).Methods(http.MethodPost)
	p.HandleFunc("/users/{id:[0-9]+}", h.Users.Update).Methods(http.MethodPatch)
	p.HandleFunc("/users/{id:[0-9]+}", h.Users.Deactivate).Methods(http.MethodDelete)

	p.HandleFunc("/ledger", h.Ledger.Create).Methods(http.MethodPost)
	p.HandleFunc("/ledger", h.Ledger.List).Methods(http.MethodGet)
	p.HandleFunc("/ledger/daily-summary", h.Ledger.DailySummary).Methods(http.MethodGet)
	p.HandleFunc("/ledger/{id:[0-9]+}", h.Ledger.Update).Methods(http.MethodPatch)
	p.HandleFunc("/ledger/{id:[0-9]+}", h.Ledger.Delete).Methods(http.MethodDelete)

	p.HandleFunc("/reimbursements", h.Reimbursements.Request).Methods(http.MethodPost)
	p.HandleFunc("/reimbursements/mine", h.Reimbursements.Mine).Methods(http.MethodGet)
	p.HandleFunc("/reimbursements/pending", h.Reimbursements.Pending).Methods(http.MethodGet)
	p.HandleFunc("/reimbursements/{id:[0-9]+}/approve", h.Reimbursements.Approve).Methods(http.MethodPost)
	p.HandleFunc("/reimbursements/{id:[0-9]+}/reject", h.Reimbursements.Reject).Methods(http.MethodPost)

	p.HandleFunc("/analytics/summary", h.Analytics.Summary).Methods(http.MethodGet)
	p.HandleFunc("/activity", h.Activity.List).Methods(http.MethodGet)

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	limit := middleware.MaxBodyBytes(maxUpload)
	p.Handle("/receipts/upload", limit(http.HandlerFunc(h.Receipts.Upload))).Methods(http.MethodPost)
	p.Handle("/recipes", limit(http.HandlerFunc(h.Recipes.Create))).Methods(http.MethodPost)

	p.HandleFunc("/receipts", h.Receipts.List).Methods(http.MethodGet)
	p.HandleFunc("/receipts/search", h.Receipts.Search).Methods(http.MethodGet)
	p.HandleFunc("/receipts/{id:[0-9]+}", h.Receipts.Update).Methods(http.MethodPatch)

	p.HandleFunc("/inventory", h.Inventory.List).Methods(http.MethodGet)
	p.HandleFunc("/inventory", h.Inventory.Create).Methods(http.MethodPost)
	p.HandleFunc("/inventory/{id:[0-9]+}", h.Inventory.Update).Methods(http.MethodPatch)
	p.HandleFunc("/inventory/{id:[0-9]+}", h.Inventory.Delete).Methods(http.MethodDelete)

	p.HandleFunc("/recipes", h.Recipes.List).Methods(http.MethodGet)
	p.HandleFunc("/recipes/{id:[0-9]+}", h.Recipes.Update).Methods(http.MethodPatch)
	p.HandleFunc("/recipes/{id:[0-9]+}", h.Recipes.Delete).Methods(http.MethodDelete)

	p.HandleFunc("/jobs", h.Jobs.ListJobs).Methods(http.MethodGet)
	p.HandleFunc("/jobs/{id}", h.Jobs.GetJob).Methods(http.MethodGet)

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(cfg.FrontendURL)(r),
			),
		),
	)
}
