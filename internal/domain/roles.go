package domain

// Role is a capability granted to an account. Multiple accounts may
// hold the same role; role checks happen at the start of each ledger
// operation.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleVerifier   Role = "verifier"
	RoleOracle     Role = "oracle"
	RoleLiquidator Role = "liquidator"
	RoleTreasury   Role = "treasury"
)

// Roles lists every known role in a stable order.
var Roles = []Role{RoleAdmin, RoleVerifier, RoleOracle, RoleLiquidator, RoleTreasury}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// RoleGrant binds an account to a role.
type RoleGrant struct {
	Role    Role   `json:"role"`
	Account string `json:"account"`
}
