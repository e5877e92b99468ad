// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended
// for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

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
	"github.com/vendnet/vendops/internal/app/storage"
)

// Store keeps everything in maps guarded by a single mutex.
type Store struct {
	mu sync.RWMutex

	users     map[string]user.User
	roles     map[string]user.Role // keyed by name
	userRoles map[string][]string  // user id -> role names

	machines map[string]machine.Machine

	products map[string]catalog.Product
	recipes  map[string]catalog.Recipe

	ingredients map[string]inventory.Ingredient
	records     []inventory.Record

	tasks map[string]task.Task

	sales    map[string]sale.Sale
	payments map[string]sale.Payment

	finAccounts  map[string]finance.Account
	transactions map[string]finance.Transaction

	investments map[string]investment.Investment
	payouts     map[string]investment.Payout

	collections map[string]collection.Collection

	suppliers map[string]supplier.Supplier
	purchases map[string]supplier.Purchase

	auditLog []audit.Entry
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MachineStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.InventoryStore = (*Store)(nil)
var _ storage.TaskStore = (*Store)(nil)
var _ storage.SaleStore = (*Store)(nil)
var _ storage.FinanceStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.CollectionStore = (*Store)(nil)
var _ storage.SupplierStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]user.User),
		roles:        make(map[string]user.Role),
		userRoles:    make(map[string][]string),
		machines:     make(map[string]machine.Machine),
		products:     make(map[string]catalog.Product),
		recipes:      make(map[string]catalog.Recipe),
		ingredients:  make(map[string]inventory.Ingredient),
		tasks:        make(map[string]task.Task),
		sales:        make(map[string]sale.Sale),
		payments:     make(map[string]sale.Payment),
		finAccounts:  make(map[string]finance.Account),
		transactions: make(map[string]finance.Transaction),
		investments:  make(map[string]investment.Investment),
		payouts:      make(map[string]investment.Payout),
		collections:  make(map[string]collection.Collection),
		suppliers:    make(map[string]supplier.Supplier),
		purchases:    make(map[string]supplier.Purchase),
	}
}

// UserStore ------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, storage.ErrConflict
	}
	for _, existing := range s.users {
		if !existing.DeletedAt.IsZero() {
			continue
		}
		if u.Username != "" && existing.Username == u.Username {
			return user.User{}, fmt.Errorf("username %q: %w", u.Username, storage.ErrConflict)
		}
		if u.Email != "" && existing.Email == u.Email {
			return user.User{}, fmt.Errorf("email %q: %w", u.Email, storage.ErrConflict)
		}
		if u.TelegramID != 0 && existing.TelegramID == u.TelegramID {
			return user.User{}, fmt.Errorf("telegram id %d: %w", u.TelegramID, storage.ErrConflict)
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Settings = cloneMap(u.Settings)
	u.Roles = s.resolveRolesLocked(u.ID)
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok || !existing.DeletedAt.IsZero() {
		return user.User{}, storage.ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.Settings = cloneMap(u.Settings)
	s.users[u.ID] = u
	return s.withRolesLocked(u), nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok || !u.DeletedAt.IsZero() {
		return user.User{}, storage.ErrNotFound
	}
	return s.withRolesLocked(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Username == username && username != "" })
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Email == email && email != "" })
}

func (s *Store) GetUserByTelegramID(_ context.Context, telegramID int64) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.TelegramID == telegramID && telegramID != 0 })
}

func (s *Store) findUser(match func(user.User) bool) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.DeletedAt.IsZero() && match(u) {
			return s.withRolesLocked(u), nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		if u.DeletedAt.IsZero() {
			out = append(out, s.withRolesLocked(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !u.DeletedAt.IsZero() {
		return storage.ErrNotFound
	}
	u.DeletedAt = time.Now().UTC()
	u.UpdatedAt = u.DeletedAt
	s.users[id] = u
	return nil
}

func (s *Store) UpsertRole(_ context.Context, r user.Role) (user.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.roles[r.Name]; ok {
		r.ID = existing.ID
	} else if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Permissions = append([]user.Permission(nil), r.Permissions...)
	s.roles[r.Name] = r
	return r, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (user.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[name]
	if !ok {
		return user.Role{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRoles(_ context.Context) ([]user.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetUserRoles(_ context.Context, userID string, roleNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || !u.DeletedAt.IsZero() {
		return storage.ErrNotFound
	}
	for _, name := range roleNames {
		if _, ok := s.roles[name]; !ok {
			return fmt.Errorf("role %q: %w", name, storage.ErrNotFound)
		}
	}
	s.userRoles[userID] = append([]string(nil), roleNames...)
	return nil
}

func (s *Store) resolveRolesLocked(userID string) []user.Role {
	names := s.userRoles[userID]
	out := make([]user.Role, 0, len(names))
	for _, n := range names {
		if r, ok := s.roles[n]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) withRolesLocked(u user.User) user.User {
	u.Roles = s.resolveRolesLocked(u.ID)
	return u
}

// MachineStore ---------------------------------------------------------------

func (s *Store) CreateMachine(_ context.Context, m machine.Machine) (machine.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	for _, existing := range s.machines {
		if existing.DeletedAt.IsZero() && existing.Code == m.Code {
			return machine.Machine{}, fmt.Errorf("machine code %q: %w", m.Code, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Settings = cloneMap(m.Settings)
	m.Metadata = cloneMap(m.Metadata)
	s.machines[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMachine(_ context.Context, m machine.Machine) (machine.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.machines[m.ID]
	if !ok || !existing.DeletedAt.IsZero() {
		return machine.Machine{}, storage.ErrNotFound
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	m.Settings = cloneMap(m.Settings)
	m.Metadata = cloneMap(m.Metadata)
	s.machines[m.ID] = m
	return m, nil
}

func (s *Store) GetMachine(_ context.Context, id string) (machine.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.machines[id]
	if !ok || !m.DeletedAt.IsZero() {
		return machine.Machine{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetMachineByCode(_ context.Context, code string) (machine.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.machines {
		if m.DeletedAt.IsZero() && m.Code == code {
			return m, nil
		}
	}
	return machine.Machine{}, storage.ErrNotFound
}

func (s *Store) ListMachines(_ context.Context, filter storage.MachineFilter) ([]machine.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []machine.Machine
	for _, m := range s.machines {
		if !m.DeletedAt.IsZero() {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.ResponsibleUserID != "" && m.ResponsibleUserID != filter.ResponsibleUserID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) DeleteMachine(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.machines[id]
	if !ok || !m.DeletedAt.IsZero() {
		return storage.ErrNotFound
	}
	m.DeletedAt = time.Now().UTC()
	m.UpdatedAt = m.DeletedAt
	s.machines[id] = m
	return nil
}

// CatalogStore ---------------------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, existing := range s.products {
		if existing.Code == p.Code {
			return catalog.Product{}, fmt.Errorf("product code %q: %w", p.Code, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return catalog.Product{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProductByCode(_ context.Context, code string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Code == code {
			return p, nil
		}
	}
	return catalog.Product{}, storage.ErrNotFound
}

func (s *Store) ListProducts(_ context.Context, activeOnly bool) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Product
	for _, p := range s.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) CreateRecipe(_ context.Context, r catalog.Recipe) (catalog.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[r.ProductID]; !ok {
		return catalog.Recipe{}, fmt.Errorf("product %s: %w", r.ProductID, storage.ErrNotFound)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	maxVersion := 0
	for _, existing := range s.recipes {
		if existing.ProductID == r.ProductID && existing.Version > maxVersion {
			maxVersion = existing.Version
		}
	}
	r.Version = maxVersion + 1
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Items = append([]catalog.RecipeItem(nil), r.Items...)
	if r.Active {
		s.deactivateRecipesLocked(r.ProductID)
	}
	s.recipes[r.ID] = r
	return r, nil
}

func (s *Store) GetRecipe(_ context.Context, id string) (catalog.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return catalog.Recipe{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRecipes(_ context.Context, productID string) ([]catalog.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Recipe
	for _, r := range s.recipes {
		if productID == "" || r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (s *Store) GetActiveRecipe(_ context.Context, productID string) (catalog.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.recipes {
		if r.ProductID == productID && r.Active {
			return r, nil
		}
	}
	return catalog.Recipe{}, storage.ErrNotFound
}

func (s *Store) SetActiveRecipe(_ context.Context, productID, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[recipeID]
	if !ok || r.ProductID != productID {
		return storage.ErrNotFound
	}
	s.deactivateRecipesLocked(productID)
	r.Active = true
	r.UpdatedAt = time.Now().UTC()
	s.recipes[recipeID] = r
	return nil
}

func (s *Store) deactivateRecipesLocked(productID string) {
	for id, r := range s.recipes {
		if r.ProductID == productID && r.Active {
			r.Active = false
			r.UpdatedAt = time.Now().UTC()
			s.recipes[id] = r
		}
	}
}

// InventoryStore -------------------------------------------------------------

func (s *Store) CreateIngredient(_ context.Context, ing inventory.Ingredient) (inventory.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ing.ID == "" {
		ing.ID = uuid.NewString()
	}
	for _, existing := range s.ingredients {
		if existing.Code == ing.Code {
			return inventory.Ingredient{}, fmt.Errorf("ingredient code %q: %w", ing.Code, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	ing.CreatedAt = now
	ing.UpdatedAt = now
	s.ingredients[ing.ID] = ing
	return ing, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ing inventory.Ingredient) (inventory.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.ingredients[ing.ID]
	if !ok {
		return inventory.Ingredient{}, storage.ErrNotFound
	}
	ing.CreatedAt = existing.CreatedAt
	ing.UpdatedAt = time.Now().UTC()
	s.ingredients[ing.ID] = ing
	return ing, nil
}

func (s *Store) GetIngredient(_ context.Context, id string) (inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ing, ok := s.ingredients[id]
	if !ok {
		return inventory.Ingredient{}, storage.ErrNotFound
	}
	return ing, nil
}

func (s *Store) GetIngredientByCode(_ context.Context, code string) (inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ing := range s.ingredients {
		if ing.Code == code {
			return ing, nil
		}
	}
	return inventory.Ingredient{}, storage.ErrNotFound
}

func (s *Store) ListIngredients(_ context.Context) ([]inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]inventory.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) AppendRecord(_ context.Context, rec inventory.Record) (inventory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ingredients[rec.IngredientID]; !ok {
		return inventory.Record{}, fmt.Errorf("ingredient %s: %w", rec.IngredientID, storage.ErrNotFound)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Store) CurrentLevel(_ context.Context, loc inventory.Location, ingredientID string) (inventory.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found  bool
		latest inventory.Record
	)
	for _, rec := range s.records {
		if rec.Location != loc || rec.IngredientID != ingredientID {
			continue
		}
		if !found || rec.RecordedAt.After(latest.RecordedAt) ||
			(rec.RecordedAt.Equal(latest.RecordedAt) && rec.CreatedAt.After(latest.CreatedAt)) {
			latest = rec
			found = true
		}
	}
	if !found {
		return inventory.Level{}, storage.ErrNotFound
	}
	return inventory.Level{
		IngredientID: ingredientID,
		Location:     loc,
		Quantity:     latest.Quantity,
		RecordedAt:   latest.RecordedAt,
	}, nil
}

func (s *Store) ListLevels(_ context.Context, loc inventory.Location) ([]inventory.Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]inventory.Record)
	for _, rec := range s.records {
		if rec.Location != loc {
			continue
		}
		cur, ok := latest[rec.IngredientID]
		if !ok || rec.RecordedAt.After(cur.RecordedAt) ||
			(rec.RecordedAt.Equal(cur.RecordedAt) && rec.CreatedAt.After(cur.CreatedAt)) {
			latest[rec.IngredientID] = rec
		}
	}
	out := make([]inventory.Level, 0, len(latest))
	for id, rec := range latest {
		out = append(out, inventory.Level{
			IngredientID: id,
			Location:     loc,
			Quantity:     rec.Quantity,
			RecordedAt:   rec.RecordedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out, nil
}

func (s *Store) ListMovements(_ context.Context, ingredientID string, from, to time.Time) ([]inventory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []inventory.Record
	for _, rec := range s.records {
		if ingredientID != "" && rec.IngredientID != ingredientID {
			continue
		}
		if !from.IsZero() && rec.RecordedAt.Before(from) {
			continue
		}
		if !to.IsZero() && rec.RecordedAt.After(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// TaskStore ------------------------------------------------------------------

func (s *Store) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Items = append([]task.Item(nil), t.Items...)
	t.ResultData = cloneMap(t.ResultData)
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return task.Task{}, storage.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	t.Items = append([]task.Item(nil), t.Items...)
	t.ResultData = cloneMap(t.ResultData)
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) GetTask(_ context.Context, id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, filter storage.TaskFilter) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []task.Task
	for _, t := range s.tasks {
		if filter.MachineID != "" && t.MachineID != filter.MachineID {
			continue
		}
		if filter.AssignedToID != "" && t.AssignedToID != filter.AssignedToID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaleStore ------------------------------------------------------------------

func (s *Store) CreateSale(_ context.Context, sl sale.Sale) (sale.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl.ID == "" {
		sl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sl.CreatedAt = now
	if sl.SoldAt.IsZero() {
		sl.SoldAt = now
	}
	if sl.SyncStatus == "" {
		sl.SyncStatus = sale.SyncPending
	}
	s.sales[sl.ID] = sl
	return sl, nil
}

func (s *Store) UpdateSale(_ context.Context, sl sale.Sale) (sale.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[sl.ID]
	if !ok {
		return sale.Sale{}, storage.ErrNotFound
	}
	sl.CreatedAt = existing.CreatedAt
	s.sales[sl.ID] = sl
	return sl, nil
}

func (s *Store) GetSale(_ context.Context, id string) (sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sales[id]
	if !ok {
		return sale.Sale{}, storage.ErrNotFound
	}
	return sl, nil
}

func (s *Store) ListSales(_ context.Context, filter storage.SaleFilter) ([]sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []sale.Sale
	for _, sl := range s.sales {
		if filter.MachineID != "" && sl.MachineID != filter.MachineID {
			continue
		}
		if filter.SyncStatus != "" && sl.SyncStatus != filter.SyncStatus {
			continue
		}
		if !filter.From.IsZero() && sl.SoldAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && sl.SoldAt.After(filter.To) {
			continue
		}
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.Before(out[j].SoldAt) })
	return out, nil
}

func (s *Store) CreatePayment(_ context.Context, p sale.Payment) (sale.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ExternalID != "" {
		for _, existing := range s.payments {
			if existing.Source == p.Source && existing.ExternalID == p.ExternalID {
				return sale.Payment{}, fmt.Errorf("payment %s/%s: %w", p.Source, p.ExternalID, storage.ErrConflict)
			}
		}
	}
	p.CreatedAt = time.Now().UTC()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p sale.Payment) (sale.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payments[p.ID]
	if !ok {
		return sale.Payment{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (sale.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return sale.Payment{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPayments(_ context.Context, filter storage.PaymentFilter) ([]sale.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []sale.Payment
	for _, p := range s.payments {
		if filter.Source != "" && p.Source != filter.Source {
			continue
		}
		if filter.Verified != nil && p.Verified != *filter.Verified {
			continue
		}
		if !filter.From.IsZero() && p.PaidAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && p.PaidAt.After(filter.To) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

// FinanceStore ---------------------------------------------------------------

func (s *Store) CreateFinanceAccount(_ context.Context, a finance.Account) (finance.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for _, existing := range s.finAccounts {
		if existing.Code == a.Code {
			return finance.Account{}, fmt.Errorf("account code %q: %w", a.Code, storage.ErrConflict)
		}
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.finAccounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateFinanceAccount(_ context.Context, a finance.Account) (finance.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.finAccounts[a.ID]
	if !ok {
		return finance.Account{}, storage.ErrNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.finAccounts[a.ID] = a
	return a, nil
}

func (s *Store) GetFinanceAccount(_ context.Context, id string) (finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.finAccounts[id]
	if !ok {
		return finance.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetFinanceAccountByCode(_ context.Context, code string) (finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.finAccounts {
		if a.Code == code {
			return a, nil
		}
	}
	return finance.Account{}, storage.ErrNotFound
}

func (s *Store) ListFinanceAccounts(_ context.Context) ([]finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]finance.Account, 0, len(s.finAccounts))
	for _, a := range s.finAccounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx finance.Transaction) (finance.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.FromAccountID != "" {
		if _, ok := s.finAccounts[tx.FromAccountID]; !ok {
			return finance.Transaction{}, fmt.Errorf("from account %s: %w", tx.FromAccountID, storage.ErrNotFound)
		}
	}
	if tx.ToAccountID != "" {
		if _, ok := s.finAccounts[tx.ToAccountID]; !ok {
			return finance.Transaction{}, fmt.Errorf("to account %s: %w", tx.ToAccountID, storage.ErrNotFound)
		}
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = now
	}
	if tx.FromAccountID != "" {
		from := s.finAccounts[tx.FromAccountID]
		from.Balance -= tx.Amount
		from.UpdatedAt = now
		s.finAccounts[tx.FromAccountID] = from
	}
	if tx.ToAccountID != "" {
		to := s.finAccounts[tx.ToAccountID]
		to.Balance += tx.Amount
		to.UpdatedAt = now
		s.finAccounts[tx.ToAccountID] = to
	}
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return finance.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []finance.Transaction
	for _, tx := range s.transactions {
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		if filter.AccountID != "" && tx.FromAccountID != filter.AccountID && tx.ToAccountID != filter.AccountID {
			continue
		}
		if filter.ReferenceType != "" && tx.ReferenceType != filter.ReferenceType {
			continue
		}
		if filter.ReferenceID != "" && tx.ReferenceID != filter.ReferenceID {
			continue
		}
		if !filter.From.IsZero() && tx.OccurredAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.OccurredAt.After(filter.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// InvestmentStore ------------------------------------------------------------

func (s *Store) CreateInvestment(_ context.Context, inv investment.Investment) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if inv.InvestedAt.IsZero() {
		inv.InvestedAt = now
	}
	s.investments[inv.ID] = inv
	return inv, nil
}

func (s *Store) UpdateInvestment(_ context.Context, inv investment.Investment) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.investments[inv.ID]
	if !ok {
		return investment.Investment{}, storage.ErrNotFound
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now().UTC()
	s.investments[inv.ID] = inv
	return inv, nil
}

func (s *Store) GetInvestment(_ context.Context, id string) (investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investments[id]
	if !ok {
		return investment.Investment{}, storage.ErrNotFound
	}
	return inv, nil
}

func (s *Store) ListInvestments(_ context.Context, filter storage.InvestmentFilter) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []investment.Investment
	for _, inv := range s.investments {
		if filter.MachineID != "" && inv.MachineID != filter.MachineID {
			continue
		}
		if filter.InvestorID != "" && inv.InvestorID != filter.InvestorID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreatePayout(_ context.Context, p investment.Payout) (investment.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.investments[p.InvestmentID]; !ok {
		return investment.Payout{}, fmt.Errorf("investment %s: %w", p.InvestmentID, storage.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payouts[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePayout(_ context.Context, p investment.Payout) (investment.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payouts[p.ID]
	if !ok {
		return investment.Payout{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.payouts[p.ID] = p
	return p, nil
}

func (s *Store) GetPayout(_ context.Context, id string) (investment.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payouts[id]
	if !ok {
		return investment.Payout{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPayouts(_ context.Context, filter storage.PayoutFilter) ([]investment.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []investment.Payout
	for _, p := range s.payouts {
		if filter.InvestmentID != "" && p.InvestmentID != filter.InvestmentID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CollectionStore ------------------------------------------------------------

func (s *Store) CreateCollection(_ context.Context, c collection.Collection) (collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.CollectedAt.IsZero() {
		c.CollectedAt = now
	}
	c.Denominations = append([]collection.Denomination(nil), c.Denominations...)
	s.collections[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCollection(_ context.Context, c collection.Collection) (collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[c.ID]
	if !ok {
		return collection.Collection{}, storage.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	c.Denominations = append([]collection.Denomination(nil), c.Denominations...)
	s.collections[c.ID] = c
	return c, nil
}

func (s *Store) GetCollection(_ context.Context, id string) (collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok {
		return collection.Collection{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCollections(_ context.Context, filter storage.CollectionFilter) ([]collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []collection.Collection
	for _, c := range s.collections {
		if filter.MachineID != "" && c.MachineID != filter.MachineID {
			continue
		}
		if filter.OperatorID != "" && c.OperatorID != filter.OperatorID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && c.CollectedAt.Before(filter.From) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectedAt.Before(out[j].CollectedAt) })
	return out, nil
}

// SupplierStore --------------------------------------------------------------

func (s *Store) CreateSupplier(_ context.Context, sp supplier.Supplier) (supplier.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if sp.TaxID != "" {
		for _, existing := range s.suppliers {
			if existing.TaxID == sp.TaxID {
				return supplier.Supplier{}, fmt.Errorf("supplier tax id %q: %w", sp.TaxID, storage.ErrConflict)
			}
		}
	}
	now := time.Now().UTC()
	sp.CreatedAt = now
	sp.UpdatedAt = now
	s.suppliers[sp.ID] = sp
	return sp, nil
}

func (s *Store) UpdateSupplier(_ context.Context, sp supplier.Supplier) (supplier.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[sp.ID]
	if !ok {
		return supplier.Supplier{}, storage.ErrNotFound
	}
	sp.CreatedAt = existing.CreatedAt
	sp.UpdatedAt = time.Now().UTC()
	s.suppliers[sp.ID] = sp
	return sp, nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (supplier.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.suppliers[id]
	if !ok {
		return supplier.Supplier{}, storage.ErrNotFound
	}
	return sp, nil
}

func (s *Store) ListSuppliers(_ context.Context, activeOnly bool) ([]supplier.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []supplier.Supplier
	for _, sp := range s.suppliers {
		if activeOnly && !sp.Active {
			continue
		}
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreatePurchase(_ context.Context, p supplier.Purchase) (supplier.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[p.SupplierID]; !ok {
		return supplier.Purchase{}, fmt.Errorf("supplier %s: %w", p.SupplierID, storage.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Items = append([]supplier.PurchaseItem(nil), p.Items...)
	s.purchases[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePurchase(_ context.Context, p supplier.Purchase) (supplier.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.purchases[p.ID]
	if !ok {
		return supplier.Purchase{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Items = append([]supplier.PurchaseItem(nil), p.Items...)
	s.purchases[p.ID] = p
	return p, nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (supplier.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[id]
	if !ok {
		return supplier.Purchase{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPurchases(_ context.Context, filter storage.PurchaseFilter) ([]supplier.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []supplier.Purchase
	for _, p := range s.purchases {
		if filter.SupplierID != "" && p.SupplierID != filter.SupplierID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AuditStore -----------------------------------------------------------------

func (s *Store) AppendAudit(_ context.Context, e audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	s.auditLog = append(s.auditLog, e)
	return e, nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.auditLog) {
		limit = len(s.auditLog)
	}
	out := make([]audit.Entry, limit)
	copy(out, s.auditLog[len(s.auditLog)-limit:])
	return out, nil
}

func cloneMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
