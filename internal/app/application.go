package app

import (
	"context"
	"fmt"

	authsvc "github.com/vendnet/vendops/internal/app/services/auth"
	catalogsvc "github.com/vendnet/vendops/internal/app/services/catalog"
	collectionsvc "github.com/vendnet/vendops/internal/app/services/collections"
	financesvc "github.com/vendnet/vendops/internal/app/services/finance"
	inventorysvc "github.com/vendnet/vendops/internal/app/services/inventory"
	investmentsvc "github.com/vendnet/vendops/internal/app/services/investments"
	machinesvc "github.com/vendnet/vendops/internal/app/services/machines"
	salesvc "github.com/vendnet/vendops/internal/app/services/sales"
	"github.com/vendnet/vendops/internal/app/services/scheduler"
	suppliersvc "github.com/vendnet/vendops/internal/app/services/suppliers"
	tasksvc "github.com/vendnet/vendops/internal/app/services/tasks"
	userssvc "github.com/vendnet/vendops/internal/app/services/users"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/internal/session"
	"github.com/vendnet/vendops/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to
// the in-memory implementation.
type Stores struct {
	Users       storage.UserStore
	Machines    storage.MachineStore
	Catalog     storage.CatalogStore
	Inventory   storage.InventoryStore
	Tasks       storage.TaskStore
	Sales       storage.SaleStore
	Finance     storage.FinanceStore
	Investments storage.InvestmentStore
	Collections storage.CollectionStore
	Suppliers   storage.SupplierStore
	Audit       storage.AuditStore
}

// Options carries the non-store dependencies and tunables.
type Options struct {
	Auth        authsvc.Config
	Sessions    session.Store
	Scheduler   scheduler.Config
	PoolPercent float64
	RunJobs     bool
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	log    *logger.Logger
	stores Stores
	runner *scheduler.Scheduler

	Users       *userssvc.Service
	Auth        *authsvc.Service
	Machines    *machinesvc.Service
	Catalog     *catalogsvc.Service
	Inventory   *inventorysvc.Service
	Tasks       *tasksvc.Service
	Sales       *salesvc.Service
	Finance     *financesvc.Service
	Investments *investmentsvc.Service
	Collections *collectionsvc.Service
	Suppliers   *suppliersvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Machines == nil {
		stores.Machines = mem
	}
	if stores.Catalog == nil {
		stores.Catalog = mem
	}
	if stores.Inventory == nil {
		stores.Inventory = mem
	}
	if stores.Tasks == nil {
		stores.Tasks = mem
	}
	if stores.Sales == nil {
		stores.Sales = mem
	}
	if stores.Finance == nil {
		stores.Finance = mem
	}
	if stores.Investments == nil {
		stores.Investments = mem
	}
	if stores.Collections == nil {
		stores.Collections = mem
	}
	if stores.Suppliers == nil {
		stores.Suppliers = mem
	}
	if stores.Audit == nil {
		stores.Audit = mem
	}

	userService := userssvc.New(stores.Users, log)
	authService := authsvc.New(opts.Auth, stores.Users, opts.Sessions, log)
	inventoryService := inventorysvc.New(stores.Inventory, log)
	machineService := machinesvc.New(stores.Machines, stores.Users, stores.Sales, log)
	catalogService := catalogsvc.New(stores.Catalog, stores.Inventory, log)
	taskService := tasksvc.New(stores.Tasks, stores.Machines, stores.Users, inventoryService, log)
	financeService := financesvc.New(stores.Finance, log)
	saleService := salesvc.New(stores.Sales, stores.Machines, stores.Catalog, stores.Finance, inventoryService, log)
	investmentService := investmentsvc.New(stores.Investments, stores.Machines, stores.Users, stores.Sales, financeService, opts.PoolPercent, log)
	collectionService := collectionsvc.New(stores.Collections, stores.Machines, stores.Sales, log)
	supplierService := suppliersvc.New(stores.Suppliers, stores.Finance, inventoryService, log)

	application := &Application{
		log:         log,
		stores:      stores,
		Users:       userService,
		Auth:        authService,
		Machines:    machineService,
		Catalog:     catalogService,
		Inventory:   inventoryService,
		Tasks:       taskService,
		Sales:       saleService,
		Finance:     financeService,
		Investments: investmentService,
		Collections: collectionService,
		Suppliers:   supplierService,
	}
	if opts.RunJobs {
		application.runner = scheduler.New(opts.Scheduler, saleService, investmentService, stores.Machines, log)
	}
	return application, nil
}

// Start seeds baseline data and launches background jobs.
func (a *Application) Start(ctx context.Context) error {
	if err := a.Users.EnsureSystemRoles(ctx); err != nil {
		return fmt.Errorf("ensure roles: %w", err)
	}
	if err := a.Finance.EnsureDefaultAccounts(ctx); err != nil {
		return fmt.Errorf("ensure accounts: %w", err)
	}
	if a.runner != nil {
		if err := a.runner.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	a.log.Info("application started")
	return nil
}

// Stop halts background jobs.
func (a *Application) Stop() {
	if a.runner != nil {
		a.runner.Stop()
	}
	a.log.Info("application stopped")
}

// AuditStore exposes the audit sink for the HTTP layer.
func (a *Application) AuditStore() storage.AuditStore {
	return a.stores.Audit
}
