package shared

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role values forwarded by the identity gateway.
const (
	RoleAdmin       = "admin"
	RoleEmployee    = "empleado"
	RoleOwner       = "propietario"
	RoleSupplier    = "proveedor"
	RoleUnspecified = ""
)

// UserType is the display classification of a user.
type UserType string

const (
	UserTypeAdministrator UserType = "Administrador"
	UserTypeEmployee      UserType = "Empleado"
	UserTypeOwner         UserType = "Propietario"
	UserTypeSupplier      UserType = "Proveedor"
	UserTypeDefault       UserType = "Usuario"
)

var knownUserTypes = map[string]UserType{
	"administrador": UserTypeAdministrator,
	"empleado":      UserTypeEmployee,
	"propietario":   UserTypeOwner,
	"proveedor":     UserTypeSupplier,
	"usuario":       UserTypeDefault,
}

var roleUserTypes = map[string]UserType{
	RoleAdmin:    UserTypeAdministrator,
	RoleEmployee: UserTypeEmployee,
	RoleOwner:    UserTypeOwner,
	RoleSupplier: UserTypeSupplier,
}

// DeriveUserType resolves the display type of a user. Rules, first match wins:
//  1. an explicit tipo that names a known type;
//  2. the type mapped from the role;
//  3. UserTypeDefault.
func DeriveUserType(tipo, role string) UserType {
	if t, ok := knownUserTypes[strings.ToLower(strings.TrimSpace(tipo))]; ok {
		return t
	}
	if t, ok := roleUserTypes[strings.ToLower(strings.TrimSpace(role))]; ok {
		return t
	}
	return UserTypeDefault
}

// Actor identifies the caller of a core operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
	Email  string
	Type   UserType
}

// NewActor normalises the raw identity values.
func NewActor(userID uuid.UUID, role, email, tipo string) Actor {
	role = strings.ToLower(strings.TrimSpace(role))
	return Actor{
		UserID: userID,
		Role:   role,
		Email:  strings.TrimSpace(email),
		Type:   DeriveUserType(tipo, role),
	}
}

// Identified reports whether the gateway supplied a user.
func (a Actor) Identified() bool {
	return a.UserID != uuid.Nil
}

// CanManageTreasury reports whether the actor may mutate ledger lines and balances.
func (a Actor) CanManageTreasury() bool {
	return a.Identified() && (a.Role == RoleAdmin || a.Role == RoleEmployee)
}

// RequireTreasury returns ErrForbidden unless the actor may mutate treasury state.
func (a Actor) RequireTreasury(op string) error {
	if !a.CanManageTreasury() {
		return fmt.Errorf("%w: %s requires role %s or %s", ErrForbidden, op, RoleAdmin, RoleEmployee)
	}
	return nil
}

// RequireIdentified returns ErrForbidden for anonymous callers.
func (a Actor) RequireIdentified(op string) error {
	if !a.Identified() {
		return fmt.Errorf("%w: %s requires an identified user", ErrForbidden, op)
	}
	return nil
}
