// Package httpapi exposes the REST API consumed by the dashboard and
// external integrations.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/vendnet/vendops/internal/app"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Config tunes the HTTP surface.
type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    string
}

func (c Config) withDefaults() Config {
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 20
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 40
	}
	if c.CORSOrigins == "" {
		c.CORSOrigins = "*"
	}
	return c
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit storage.AuditStore
	hub   *Hub
	cfg   Config
	log   *logger.Logger
}

// New returns the router exposing the REST API under /api/v1.
func New(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{
		app:   application,
		audit: application.AuditStore(),
		hub:   NewHub(),
		cfg:   cfg.withDefaults(),
		log:   log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.corsMiddleware, h.rateLimitMiddleware)

	// Auth endpoints work without a token.
	api.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/telegram", h.handleTelegramLogin).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/refresh", h.handleRefresh).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/logout", h.handleLogout).Methods(http.MethodPost, http.MethodOptions)

	sec := api.NewRoute().Subrouter()
	sec.Use(h.authMiddleware, h.auditMiddleware)

	sec.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
	sec.HandleFunc("/me/password", h.handleOwnPassword).Methods(http.MethodPost)
	sec.HandleFunc("/events", h.handleEvents).Methods(http.MethodGet)

	sec.HandleFunc("/users", h.requirePermission("users", "view", h.handleListUsers)).Methods(http.MethodGet)
	sec.HandleFunc("/users", h.requirePermission("users", "create", h.handleCreateUser)).Methods(http.MethodPost)
	sec.HandleFunc("/users/{id}", h.requirePermission("users", "view", h.handleGetUser)).Methods(http.MethodGet)
	sec.HandleFunc("/users/{id}", h.requirePermission("users", "edit", h.handleUpdateUser)).Methods(http.MethodPatch)
	sec.HandleFunc("/users/{id}", h.requirePermission("users", "delete", h.handleDeleteUser)).Methods(http.MethodDelete)
	sec.HandleFunc("/users/{id}/roles", h.requirePermission("users", "edit", h.handleAssignRoles)).Methods(http.MethodPut)
	sec.HandleFunc("/roles", h.requirePermission("users", "view", h.handleListRoles)).Methods(http.MethodGet)

	sec.HandleFunc("/machines", h.requirePermission("machines", "view", h.handleListMachines)).Methods(http.MethodGet)
	sec.HandleFunc("/machines", h.requirePermission("machines", "create", h.handleCreateMachine)).Methods(http.MethodPost)
	sec.HandleFunc("/machines/{id}", h.requirePermission("machines", "view", h.handleGetMachine)).Methods(http.MethodGet)
	sec.HandleFunc("/machines/{id}", h.requirePermission("machines", "edit", h.handleUpdateMachine)).Methods(http.MethodPatch)
	sec.HandleFunc("/machines/{id}", h.requirePermission("machines", "delete", h.handleDeleteMachine)).Methods(http.MethodDelete)
	sec.HandleFunc("/machines/{id}/status", h.requirePermission("machines", "edit", h.handleMachineStatus)).Methods(http.MethodPut)
	sec.HandleFunc("/machines/{id}/statistics", h.requirePermission("machines", "view", h.handleMachineStatistics)).Methods(http.MethodGet)
	sec.HandleFunc("/machines/{id}/inventory", h.requirePermission("inventory", "view", h.handleMachineInventory)).Methods(http.MethodGet)

	sec.HandleFunc("/products", h.handleListProducts).Methods(http.MethodGet)
	sec.HandleFunc("/products", h.requirePermission("products", "create", h.handleCreateProduct)).Methods(http.MethodPost)
	sec.HandleFunc("/products/{id}", h.handleGetProduct).Methods(http.MethodGet)
	sec.HandleFunc("/products/{id}", h.requirePermission("products", "edit", h.handleUpdateProduct)).Methods(http.MethodPatch)
	sec.HandleFunc("/products/{id}/recipes", h.handleListRecipes).Methods(http.MethodGet)
	sec.HandleFunc("/products/{id}/recipes", h.requirePermission("products", "edit", h.handleCreateRecipe)).Methods(http.MethodPost)
	sec.HandleFunc("/recipes/{id}", h.handleGetRecipe).Methods(http.MethodGet)
	sec.HandleFunc("/recipes/{id}/activate", h.requirePermission("products", "edit", h.handleActivateRecipe)).Methods(http.MethodPost)

	sec.HandleFunc("/ingredients", h.requirePermission("inventory", "view", h.handleListIngredients)).Methods(http.MethodGet)
	sec.HandleFunc("/ingredients", h.requirePermission("inventory", "edit", h.handleCreateIngredient)).Methods(http.MethodPost)
	sec.HandleFunc("/ingredients/{id}", h.requirePermission("inventory", "edit", h.handleUpdateIngredient)).Methods(http.MethodPatch)
	sec.HandleFunc("/ingredients/{id}/movements", h.requirePermission("inventory", "view", h.handleMovements)).Methods(http.MethodGet)
	sec.HandleFunc("/inventory/levels", h.requirePermission("inventory", "view", h.handleLevels)).Methods(http.MethodGet)
	sec.HandleFunc("/inventory/receive", h.requirePermission("inventory", "edit", h.handleReceive)).Methods(http.MethodPost)
	sec.HandleFunc("/inventory/issue", h.requirePermission("inventory", "edit", h.handleIssue)).Methods(http.MethodPost)
	sec.HandleFunc("/inventory/transfer", h.requirePermission("inventory", "transfer", h.handleTransfer)).Methods(http.MethodPost)
	sec.HandleFunc("/inventory/adjust", h.requirePermission("inventory", "edit", h.handleAdjust)).Methods(http.MethodPost)
	sec.HandleFunc("/inventory/low-stock", h.requirePermission("inventory", "view", h.handleLowStock)).Methods(http.MethodGet)

	sec.HandleFunc("/tasks", h.requirePermission("tasks", "view", h.handleListTasks)).Methods(http.MethodGet)
	sec.HandleFunc("/tasks", h.requirePermission("tasks", "create", h.handleCreateTask)).Methods(http.MethodPost)
	sec.HandleFunc("/tasks/{id}", h.requirePermission("tasks", "view", h.handleGetTask)).Methods(http.MethodGet)
	sec.HandleFunc("/tasks/{id}/assign", h.requirePermission("tasks", "assign", h.handleAssignTask)).Methods(http.MethodPost)
	sec.HandleFunc("/tasks/{id}/start", h.requirePermission("tasks", "complete", h.handleStartTask)).Methods(http.MethodPost)
	sec.HandleFunc("/tasks/{id}/complete", h.requirePermission("tasks", "complete", h.handleCompleteTask)).Methods(http.MethodPost)
	sec.HandleFunc("/tasks/{id}/cancel", h.requirePermission("tasks", "create", h.handleCancelTask)).Methods(http.MethodPost)

	sec.HandleFunc("/sales", h.requirePermission("finance", "view", h.handleListSales)).Methods(http.MethodGet)
	sec.HandleFunc("/sales", h.requirePermission("machines", "edit", h.handleRecordSale)).Methods(http.MethodPost)
	sec.HandleFunc("/payments", h.requirePermission("finance", "view", h.handleListPayments)).Methods(http.MethodGet)
	sec.HandleFunc("/payments", h.requirePermission("finance", "create", h.handleIngestPayment)).Methods(http.MethodPost)
	sec.HandleFunc("/reconciliation/run", h.requirePermission("finance", "create", h.handleReconcile)).Methods(http.MethodPost)

	sec.HandleFunc("/finance/accounts", h.requirePermission("finance", "view", h.handleListAccounts)).Methods(http.MethodGet)
	sec.HandleFunc("/finance/accounts", h.requirePermission("finance", "create", h.handleCreateAccount)).Methods(http.MethodPost)
	sec.HandleFunc("/finance/transactions", h.requirePermission("finance", "view", h.handleListTransactions)).Methods(http.MethodGet)
	sec.HandleFunc("/finance/transactions", h.requirePermission("finance", "create", h.handlePostTransaction)).Methods(http.MethodPost)
	sec.HandleFunc("/finance/summary", h.requirePermission("finance", "view", h.handleFinanceSummary)).Methods(http.MethodGet)
	sec.HandleFunc("/finance/export", h.requirePermission("finance", "export", h.handleFinanceExport)).Methods(http.MethodGet)
	sec.HandleFunc("/reports/sales", h.requirePermission("reports", "view", h.handleSalesReport)).Methods(http.MethodGet)

	sec.HandleFunc("/investments", h.requirePermission("investments", "view", h.handleListInvestments)).Methods(http.MethodGet)
	sec.HandleFunc("/investments", h.requirePermission("investments", "create", h.handleCreateInvestment)).Methods(http.MethodPost)
	sec.HandleFunc("/investments/{id}", h.requirePermission("investments", "view", h.handleGetInvestment)).Methods(http.MethodGet)
	sec.HandleFunc("/investments/{id}", h.requirePermission("investments", "create", h.handleUpdateInvestment)).Methods(http.MethodPatch)
	sec.HandleFunc("/payouts", h.requirePermission("investments", "view", h.handleListPayouts)).Methods(http.MethodGet)
	sec.HandleFunc("/payouts/compute", h.requirePermission("investments", "create", h.handleComputePayouts)).Methods(http.MethodPost)
	sec.HandleFunc("/payouts/{id}/pay", h.requirePermission("finance", "create", h.handlePayPayout)).Methods(http.MethodPost)

	sec.HandleFunc("/suppliers", h.requirePermission("suppliers", "view", h.handleListSuppliers)).Methods(http.MethodGet)
	sec.HandleFunc("/suppliers", h.requirePermission("suppliers", "create", h.handleCreateSupplier)).Methods(http.MethodPost)
	sec.HandleFunc("/suppliers/{id}", h.requirePermission("suppliers", "view", h.handleGetSupplier)).Methods(http.MethodGet)
	sec.HandleFunc("/suppliers/{id}", h.requirePermission("suppliers", "edit", h.handleUpdateSupplier)).Methods(http.MethodPatch)
	sec.HandleFunc("/purchases", h.requirePermission("suppliers", "view", h.handleListPurchases)).Methods(http.MethodGet)
	sec.HandleFunc("/purchases", h.requirePermission("suppliers", "create", h.handleCreatePurchase)).Methods(http.MethodPost)
	sec.HandleFunc("/purchases/{id}", h.requirePermission("suppliers", "view", h.handleGetPurchase)).Methods(http.MethodGet)
	sec.HandleFunc("/purchases/{id}/confirm", h.requirePermission("suppliers", "create", h.handleConfirmPurchase)).Methods(http.MethodPost)
	sec.HandleFunc("/purchases/{id}/cancel", h.requirePermission("suppliers", "create", h.handleCancelPurchase)).Methods(http.MethodPost)
	sec.HandleFunc("/purchases/{id}/receive", h.requirePermission("inventory", "edit", h.handleReceivePurchase)).Methods(http.MethodPost)

	sec.HandleFunc("/collections", h.requirePermission("collections", "view", h.handleListCollections)).Methods(http.MethodGet)
	sec.HandleFunc("/collections", h.requirePermission("collections", "create", h.handleStartCollection)).Methods(http.MethodPost)
	sec.HandleFunc("/collections/pending", h.requirePermission("collections", "verify", h.handlePendingCollections)).Methods(http.MethodGet)
	sec.HandleFunc("/collections/{id}", h.requirePermission("collections", "view", h.handleGetCollection)).Methods(http.MethodGet)
	sec.HandleFunc("/collections/{id}/denominations", h.requirePermission("collections", "create", h.handleSetDenominations)).Methods(http.MethodPut)
	sec.HandleFunc("/collections/{id}/complete", h.requirePermission("collections", "create", h.handleCompleteCollection)).Methods(http.MethodPost)
	sec.HandleFunc("/collections/{id}/verify", h.requirePermission("collections", "verify", h.handleVerifyCollection)).Methods(http.MethodPost)

	sec.HandleFunc("/audit", h.requirePermission("audit", "view", h.handleListAudit)).Methods(http.MethodGet)

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
