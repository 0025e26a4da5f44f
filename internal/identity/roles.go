package identity

import "fmt"

// Role is a single authority a user can hold.
type Role uint8

const (
	RoleUser Role = 1 << iota
	RoleBorrower
	RoleLender
	RoleAdmin
)

// allRoles is ordered; Roles.Names renders in this order.
var allRoles = []Role{RoleUser, RoleBorrower, RoleLender, RoleAdmin}

// DefaultRoles is granted to every newly created user.
var DefaultRoles = NewRoles(RoleUser, RoleBorrower)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleBorrower:
		return "BORROWER"
	case RoleLender:
		return "LENDER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ParseRole maps a role name back to its Role.
func ParseRole(name string) (Role, error) {
	for _, r := range allRoles {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// Roles is a bit-set of Role values.
type Roles uint8

// NewRoles builds a set from the given roles.
func NewRoles(roles ...Role) Roles {
	var set Roles
	for _, r := range roles {
		set |= Roles(r)
	}
	return set
}

// Has reports whether role is in the set.
func (s Roles) Has(role Role) bool {
	return s&Roles(role) != 0
}

// With returns a copy of the set including role.
func (s Roles) With(role Role) Roles {
	return s | Roles(role)
}

// IsEmpty reports whether no role is set.
func (s Roles) IsEmpty() bool {
	return s == 0
}

// Names returns the role names as plain strings.
func (s Roles) Names() []string {
	names := make([]string, 0, len(allRoles))
	for _, r := range allRoles {
		if s.Has(r) {
			names = append(names, r.String())
		}
	}
	return names
}

// ParseRoles builds a set from role names. Unknown names are an error.
func ParseRoles(names []string) (Roles, error) {
	var set Roles
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return 0, err
		}
		set = set.With(r)
	}
	return set, nil
}
