package permission

// Capabilities checked by an Account.
const (
	CapManageSessionKeys = "session_keys.manage"
	CapManageGuardians   = "guardians.manage"
	CapRecoverOwner      = "owner.recover"
	CapExecuteGateway    = "execute.gateway"
	CapExecuteOwner      = "execute.owner"
	CapValidateUserOp    = "validate.user_op"
)

// Roles an Account resolves for a caller.
const (
	RoleOwner      = "owner"
	RoleEntryPoint = "entry_point"
	RoleGuardian   = "guardian"
)

// AccountCapabilities lists every capability in registration order.
var AccountCapabilities = []string{
	CapManageSessionKeys,
	CapManageGuardians,
	CapRecoverOwner,
	CapExecuteGateway,
	CapExecuteOwner,
	CapValidateUserOp,
}

// AccountRoles is the default role table. Guardians can only recover; the
// EntryPoint can only validate and execute through the gateway.
var AccountRoles = map[string][]string{
	RoleOwner:      {CapManageSessionKeys, CapManageGuardians, CapExecuteGateway, CapExecuteOwner},
	RoleEntryPoint: {CapExecuteGateway, CapValidateUserOp},
	RoleGuardian:   {CapRecoverOwner},
}

// NewAccountRoles builds and freezes the default registry and role table.
func NewAccountRoles() (*RoleManager, error) {
	registry := NewRegistry()
	for _, c := range AccountCapabilities {
		if _, err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	rm := NewRoleManager(registry)
	for _, role := range []string{RoleOwner, RoleEntryPoint, RoleGuardian} {
		if err := rm.RegisterRole(role, AccountRoles[role]); err != nil {
			return nil, err
		}
	}
	rm.Freeze()
	return rm, nil
}
