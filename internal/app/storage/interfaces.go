package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/audit"
	"github.com/vendnet/vendops/internal/app/domain/catalog"
	"github.com/vendnet/vendops/internal/app/domain/collection"
	"github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/investment"
	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/domain/supplier"
	"github.com/vendnet/vendops/internal/app/domain/task"
	"github.com/vendnet/vendops/internal/app/domain/user"
)

// Sentinel errors shared by all store implementations.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// UserStore persists users, roles and role assignments.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error

	UpsertRole(ctx context.Context, r user.Role) (user.Role, error)
	GetRoleByName(ctx context.Context, name string) (user.Role, error)
	ListRoles(ctx context.Context) ([]user.Role, error)
	SetUserRoles(ctx context.Context, userID string, roleNames []string) error
}

// MachineFilter narrows machine listings.
type MachineFilter struct {
	Status            machine.Status
	Type              machine.Type
	ResponsibleUserID string
}

// MachineStore persists vending machines.
type MachineStore interface {
	CreateMachine(ctx context.Context, m machine.Machine) (machine.Machine, error)
	UpdateMachine(ctx context.Context, m machine.Machine) (machine.Machine, error)
	GetMachine(ctx context.Context, id string) (machine.Machine, error)
	GetMachineByCode(ctx context.Context, code string) (machine.Machine, error)
	ListMachines(ctx context.Context, filter MachineFilter) ([]machine.Machine, error)
	DeleteMachine(ctx context.Context, id string) error
}

// CatalogStore persists products and their recipes.
type CatalogStore interface {
	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	GetProductByCode(ctx context.Context, code string) (catalog.Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]catalog.Product, error)

	CreateRecipe(ctx context.Context, r catalog.Recipe) (catalog.Recipe, error)
	GetRecipe(ctx context.Context, id string) (catalog.Recipe, error)
	ListRecipes(ctx context.Context, productID string) ([]catalog.Recipe, error)
	GetActiveRecipe(ctx context.Context, productID string) (catalog.Recipe, error)
	SetActiveRecipe(ctx context.Context, productID, recipeID string) error
}

// InventoryStore persists ingredients and the append-only stock ledger.
type InventoryStore interface {
	CreateIngredient(ctx context.Context, ing inventory.Ingredient) (inventory.Ingredient, error)
	UpdateIngredient(ctx context.Context, ing inventory.Ingredient) (inventory.Ingredient, error)
	GetIngredient(ctx context.Context, id string) (inventory.Ingredient, error)
	GetIngredientByCode(ctx context.Context, code string) (inventory.Ingredient, error)
	ListIngredients(ctx context.Context) ([]inventory.Ingredient, error)

	AppendRecord(ctx context.Context, rec inventory.Record) (inventory.Record, error)
	CurrentLevel(ctx context.Context, loc inventory.Location, ingredientID string) (inventory.Level, error)
	ListLevels(ctx context.Context, loc inventory.Location) ([]inventory.Level, error)
	ListMovements(ctx context.Context, ingredientID string, from, to time.Time) ([]inventory.Record, error)
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	MachineID    string
	AssignedToID string
	Status       task.Status
}

// TaskStore persists field tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]task.Task, error)
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	MachineID  string
	From       time.Time
	To         time.Time
	SyncStatus sale.SyncStatus
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	Source   string
	From     time.Time
	To       time.Time
	Verified *bool
}

// SaleStore persists sales and settlement payments.
type SaleStore interface {
	CreateSale(ctx context.Context, s sale.Sale) (sale.Sale, error)
	UpdateSale(ctx context.Context, s sale.Sale) (sale.Sale, error)
	GetSale(ctx context.Context, id string) (sale.Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]sale.Sale, error)

	CreatePayment(ctx context.Context, p sale.Payment) (sale.Payment, error)
	UpdatePayment(ctx context.Context, p sale.Payment) (sale.Payment, error)
	GetPayment(ctx context.Context, id string) (sale.Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]sale.Payment, error)
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Type          finance.TransactionType
	Category      finance.Category
	AccountID     string
	ReferenceType string
	ReferenceID   string
	From          time.Time
	To            time.Time
}

// FinanceStore persists accounts and money movements. CreateTransaction
// adjusts the affected account balances together with the insert.
type FinanceStore interface {
	CreateFinanceAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	UpdateFinanceAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	GetFinanceAccount(ctx context.Context, id string) (finance.Account, error)
	GetFinanceAccountByCode(ctx context.Context, code string) (finance.Account, error)
	ListFinanceAccounts(ctx context.Context) ([]finance.Account, error)

	CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
	GetTransaction(ctx context.Context, id string) (finance.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]finance.Transaction, error)
}

// InvestmentFilter narrows investment listings.
type InvestmentFilter struct {
	MachineID  string
	InvestorID string
	Status     investment.Status
}

// PayoutFilter narrows payout listings.
type PayoutFilter struct {
	InvestmentID string
	Status       investment.PayoutStatus
}

// InvestmentStore persists investor stakes and payouts.
type InvestmentStore interface {
	CreateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error)
	UpdateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error)
	GetInvestment(ctx context.Context, id string) (investment.Investment, error)
	ListInvestments(ctx context.Context, filter InvestmentFilter) ([]investment.Investment, error)

	CreatePayout(ctx context.Context, p investment.Payout) (investment.Payout, error)
	UpdatePayout(ctx context.Context, p investment.Payout) (investment.Payout, error)
	GetPayout(ctx context.Context, id string) (investment.Payout, error)
	ListPayouts(ctx context.Context, filter PayoutFilter) ([]investment.Payout, error)
}

// CollectionFilter narrows cash collection listings.
type CollectionFilter struct {
	MachineID  string
	OperatorID string
	Status     collection.Status
	From       time.Time
}

// CollectionStore persists cash collections.
type CollectionStore interface {
	CreateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error)
	UpdateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error)
	GetCollection(ctx context.Context, id string) (collection.Collection, error)
	ListCollections(ctx context.Context, filter CollectionFilter) ([]collection.Collection, error)
}

// PurchaseFilter narrows purchase listings.
type PurchaseFilter struct {
	SupplierID string
	Status     supplier.PurchaseStatus
}

// SupplierStore persists suppliers and their purchase orders.
type SupplierStore interface {
	CreateSupplier(ctx context.Context, sp supplier.Supplier) (supplier.Supplier, error)
	UpdateSupplier(ctx context.Context, sp supplier.Supplier) (supplier.Supplier, error)
	GetSupplier(ctx context.Context, id string) (supplier.Supplier, error)
	ListSuppliers(ctx context.Context, activeOnly bool) ([]supplier.Supplier, error)

	CreatePurchase(ctx context.Context, p supplier.Purchase) (supplier.Purchase, error)
	UpdatePurchase(ctx context.Context, p supplier.Purchase) (supplier.Purchase, error)
	GetPurchase(ctx context.Context, id string) (supplier.Purchase, error)
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]supplier.Purchase, error)
}

// AuditStore persists the append-only audit log.
type AuditStore interface {
	AppendAudit(ctx context.Context, e audit.Entry) (audit.Entry, error)
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)
}
