package machines

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

func newMachineFixture(t *testing.T) (*Service, *memory.Store, context.Context) {
	t.Helper()
	store := memory.New()
	return New(store, store, store, logger.NewNop()), store, context.Background()
}

func TestRegisterValidation(t *testing.T) {
	svc, _, ctx := newMachineFixture(t)

	_, err := svc.Register(ctx, machine.Machine{Name: "No Code", Type: machine.TypeCoffee})
	assert.Error(t, err, "code is required")

	_, err = svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: "teleporter"})
	assert.Error(t, err, "unknown machine type is rejected")

	_, err = svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee, ResponsibleUserID: "ghost"})
	assert.Error(t, err, "responsible user must exist")

	created, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)
	assert.Equal(t, machine.StatusActive, created.Status, "status defaults to active")
	assert.True(t, created.Operational())
}

func TestRegisterRejectsDuplicateCode(t *testing.T) {
	svc, _, ctx := newMachineFixture(t)

	_, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)

	_, err = svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Other", Type: machine.TypeSnack})
	assert.True(t, errors.Is(err, storage.ErrConflict), "err = %v", err)
}

func TestSetStatusTracksService(t *testing.T) {
	svc, _, ctx := newMachineFixture(t)
	created, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, created.ID, machine.StatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, machine.StatusMaintenance, updated.Status)
	assert.False(t, updated.LastServiceDate.IsZero(), "maintenance stamps the service date")
	assert.False(t, updated.Operational())

	_, err = svc.SetStatus(ctx, created.ID, "melted")
	assert.Error(t, err)
}

func TestAssignResponsible(t *testing.T) {
	svc, store, ctx := newMachineFixture(t)
	created, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)

	u, err := store.CreateUser(ctx, user.User{Username: "aziz", FullName: "Aziz", Active: true})
	require.NoError(t, err)

	updated, err := svc.AssignResponsible(ctx, created.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, updated.ResponsibleUserID)

	// Empty user id clears the assignment.
	updated, err = svc.AssignResponsible(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Empty(t, updated.ResponsibleUserID)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, ctx := newMachineFixture(t)

	a, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)
	_, err = svc.Register(ctx, machine.Machine{Code: "VM-002", Name: "Office", Type: machine.TypeSnack})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, a.ID, machine.StatusBroken)
	require.NoError(t, err)

	broken, err := svc.List(ctx, storage.MachineFilter{Status: machine.StatusBroken})
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "VM-001", broken[0].Code)
}

func TestDecommissionHidesMachine(t *testing.T) {
	svc, _, ctx := newMachineFixture(t)
	created, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)

	require.NoError(t, svc.Decommission(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "err = %v", err)
}

func TestStatisticsAggregatesSales(t *testing.T) {
	svc, store, ctx := newMachineFixture(t)
	created, err := svc.Register(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee})
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, amount := range []float64{15000, 25000} {
		_, err := store.CreateSale(ctx, sale.Sale{
			MachineID:     created.ID,
			Quantity:      1,
			UnitPrice:     amount,
			TotalAmount:   amount,
			PaymentMethod: sale.MethodCash,
			SoldAt:        now.Add(-time.Hour),
		})
		require.NoError(t, err)
	}
	// Outside the requested period.
	_, err = store.CreateSale(ctx, sale.Sale{
		MachineID:     created.ID,
		Quantity:      1,
		UnitPrice:     99000,
		TotalAmount:   99000,
		PaymentMethod: sale.MethodCash,
		SoldAt:        now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	stats, err := svc.Statistics(ctx, created.ID, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SalesCount)
	assert.Equal(t, float64(40000), stats.TotalRevenue)
	assert.Equal(t, float64(20000), stats.AverageCheck)
}
