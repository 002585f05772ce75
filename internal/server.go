package internal

import (
	"context"
	"net/http"
	"os"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/config"
	"arka-asset-api/internal/handlers"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
	"arka-asset-api/internal/workflow"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	Store      store.Store
	Workflows  *workflow.Service
	Resolver   *permission.Resolver
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
}

// NewServer wires the workflow core to its HTTP surface. With an empty DSN
// the in-memory store is the system of record.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	var st store.Store
	if cfg.DatabaseDSN != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		st = pg
	} else {
		st = store.NewMemory()
	}
	return NewServerWithStore(cfg, st)
}

// NewServerWithStore builds a server over an existing store. Tests use this
// with store.NewMemory().
func NewServerWithStore(cfg *config.Config, st store.Store) (*Server, error) {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, err
	}

	resolver, err := permission.NewResolver()
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	workflows := workflow.NewService(st, workflow.WithNotifier(metrics.NotifierFor(workflow.NopNotifier{})))

	s := &Server{
		Store:      st,
		Workflows:  workflows,
		Resolver:   resolver,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
	}

	// Public routes first (no middleware)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Post("/auth/login", s.loginUser)

	if os.Getenv("ENABLE_METRICS") == "true" {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})

	return s, nil
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	return s.Store.Close()
}

func (s *Server) mountProtectedRoutes(r chi.Router) {
	must := func(p string, h http.HandlerFunc) http.HandlerFunc {
		return auth.MustPermission(p)(h).(http.HandlerFunc)
	}

	// Asset ledger
	r.Get("/assets", must(permission.AssetsView, s.listAssets))
	r.Get("/assets/{id}", must(permission.AssetsView, s.getAsset))
	r.Get("/assets/{id}/activity", must(permission.AssetsView, s.getAssetActivity))
	r.Post("/assets", must(permission.AssetsCreate, s.createAsset))
	r.Put("/assets/{id}", must(permission.AssetsEdit, s.updateAsset))
	r.Post("/assets/{id}/decommission", must(permission.AssetsDelete, s.decommissionAsset))

	// Procurement requests
	r.Get("/requests", must(permission.RequestsView, s.listRequests))
	r.Get("/requests/{id}", must(permission.RequestsView, s.getRequest))
	r.Post("/requests", must(permission.RequestsCreate, s.createRequest))
	r.Post("/requests/{id}/logistic-approval", must(permission.RequestsApproveLogistic, s.logisticApproval))
	r.Post("/requests/{id}/revision", must(permission.RequestsApproveLogistic, s.reviseRequest))
	r.Post("/requests/{id}/final-submission", must(permission.RequestsApprovePurchase, s.submitForFinalApproval))
	r.Post("/requests/{id}/final-approval", must(permission.RequestsApproveFinal, s.finalApprove))
	r.Post("/requests/{id}/procurement", s.startProcurement)
	r.Post("/requests/{id}/delivery", s.advanceDelivery)
	r.Post("/requests/{id}/arrival", s.markArrived)
	r.Post("/requests/{id}/assets", must(permission.AssetsCreate, s.registerArrivedAssets))
	r.Post("/requests/{id}/cancellation", s.cancelRequest)

	// Request discussion
	r.Get("/requests/{id}/comments", must(permission.RequestsView, s.listComments))
	r.Post("/requests/{id}/comments", must(permission.RequestsComment, s.addComment))
	r.Put("/requests/{id}/comments/{entryID}", must(permission.RequestsComment, s.editComment))
	r.Delete("/requests/{id}/comments/{entryID}", must(permission.RequestsComment, s.deleteComment))

	// Loan requests
	r.Get("/loan-requests", must(permission.LoansView, s.listLoans))
	r.Get("/loan-requests/{id}", must(permission.LoansView, s.getLoan))
	r.Post("/loan-requests", must(permission.LoansCreate, s.createLoan))
	r.Post("/loan-requests/{id}/approval", must(permission.LoansApprove, s.approveLoan))
	r.Post("/loan-requests/{id}/pickup", must(permission.LoansApprove, s.markOnLoan))
	r.Post("/loan-requests/{id}/return-initiation", must(permission.LoansReturn, s.initiateReturn))

	// Asset returns
	r.Get("/returns", must(permission.LoansView, s.listReturns))
	r.Post("/returns/{id}/confirmation", must(permission.LoansReturn, s.confirmReturn))
	r.Post("/returns/{id}/rejection", must(permission.LoansReturn, s.rejectReturn))

	// Handover / dismantle / installation / maintenance
	r.Get("/handovers", must(permission.AssetsView, s.listHandovers))
	r.Post("/handovers", must(permission.AssetsHandover, s.createHandover))
	r.Post("/handovers/{id}/signature", s.signHandover)
	r.Get("/dismantles", must(permission.AssetsView, s.listDismantles))
	r.Post("/dismantles", must(permission.AssetsDismantle, s.createDismantle))
	r.Post("/dismantles/{id}/completion", must(permission.AssetsDismantle, s.completeDismantle))
	r.Get("/installations", must(permission.AssetsView, s.listInstallations))
	r.Post("/installations", must(permission.AssetsInstall, s.createInstallation))
	r.Post("/installations/{id}/completion", must(permission.AssetsInstall, s.completeInstallation))
	r.Get("/maintenance", must(permission.AssetsView, s.listMaintenance))
	r.Post("/maintenance", must(permission.AssetsRepairReport, s.reportRepair))
	r.Post("/maintenance/{id}/completion", must(permission.AssetsRepairManage, s.completeRepair))

	// Excel import
	importsHandler := handlers.NewImportsHandler(s.Workflows)
	r.Post("/imports/excel", must(permission.AssetsCreate, importsHandler.UploadExcel))

	// User management
	r.Get("/users", must(permission.UsersView, s.listUsers))
	r.Get("/users/{id}", must(permission.UsersView, s.getUser))
	r.Post("/users", must(permission.UsersManage, s.createUser))
	r.Put("/users/{id}", must(permission.UsersManage, s.updateUser))
	r.Put("/users/{id}/permissions", must(permission.UsersManage, s.updateUserPermissions))

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/change-password", s.changePassword)
}
