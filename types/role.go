package types

import "fmt"

// Role is the closed set of staff roles recognized by the system.
// Authorization decisions are made exclusively against these values.
type Role string

const (
	// RoleAdmin can manage users and read every reporting surface.
	RoleAdmin Role = "ADMIN"

	// RoleDoctor owns visits, treatment notes, and prescriptions.
	RoleDoctor Role = "DOCTOR"

	// RoleReceptionist registers patients, assigns them to doctors,
	// and issues bills.
	RoleReceptionist Role = "RECEPTIONIST"

	// RoleLab uploads and lists laboratory reports.
	RoleLab Role = "LAB"
)

// Roles lists every valid role. The order is stable and used in
// validation error messages.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleReceptionist, RoleLab}

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	for _, known := range Roles {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", raw)
}

func (r Role) String() string {
	return string(r)
}
