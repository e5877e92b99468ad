package user

// Seed role names.
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleWarehouse = "warehouse"
	RoleOperator  = "operator"
	RoleInvestor  = "investor"
)

// DefaultRolePermissions is the static permission matrix seeded at
// startup. The admin wildcard covers every module and action.
var DefaultRolePermissions = map[string][]Permission{
	RoleAdmin: {
		{Module: "*", Action: "*"},
	},
	RoleManager: {
		{Module: "machines", Action: "view"},
		{Module: "machines", Action: "create"},
		{Module: "machines", Action: "edit"},
		{Module: "tasks", Action: "view"},
		{Module: "tasks", Action: "create"},
		{Module: "tasks", Action: "assign"},
		{Module: "inventory", Action: "view"},
		{Module: "inventory", Action: "edit"},
		{Module: "finance", Action: "view"},
		{Module: "finance", Action: "create"},
		{Module: "finance", Action: "export"},
		{Module: "reports", Action: "view"},
		{Module: "reports", Action: "create"},
		{Module: "reports", Action: "export"},
		{Module: "users", Action: "view"},
		{Module: "users", Action: "edit"},
		{Module: "investments", Action: "view"},
		{Module: "investments", Action: "create"},
		{Module: "suppliers", Action: "view"},
		{Module: "suppliers", Action: "create"},
		{Module: "suppliers", Action: "edit"},
		{Module: "collections", Action: "view"},
		{Module: "collections", Action: "verify"},
	},
	RoleWarehouse: {
		{Module: "inventory", Action: "view"},
		{Module: "inventory", Action: "edit"},
		{Module: "inventory", Action: "transfer"},
		{Module: "machines", Action: "view"},
		{Module: "tasks", Action: "view"},
		{Module: "reports", Action: "view"},
		{Module: "suppliers", Action: "view"},
	},
	RoleOperator: {
		{Module: "machines", Action: "view"},
		{Module: "tasks", Action: "view"},
		{Module: "tasks", Action: "complete"},
		{Module: "inventory", Action: "view"},
		{Module: "collections", Action: "view"},
		{Module: "collections", Action: "create"},
	},
	RoleInvestor: {
		{Module: "machines", Action: "view"},
		{Module: "finance", Action: "view"},
		{Module: "reports", Action: "view"},
		{Module: "investments", Action: "view"},
	},
}

// SeedRoles returns the system roles in a stable order.
func SeedRoles() []Role {
	names := []string{RoleAdmin, RoleManager, RoleWarehouse, RoleOperator, RoleInvestor}
	display := map[string]string{
		RoleAdmin:     "Administrator",
		RoleManager:   "Manager",
		RoleWarehouse: "Warehouse",
		RoleOperator:  "Operator",
		RoleInvestor:  "Investor",
	}
	out := make([]Role, 0, len(names))
	for _, n := range names {
		out = append(out, Role{
			Name:        n,
			DisplayName: display[n],
			System:      true,
			Permissions: DefaultRolePermissions[n],
		})
	}
	return out
}
