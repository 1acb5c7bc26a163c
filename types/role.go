// Package types contains shared domain types used across the homeguard hub.
package types

import (
	"fmt"

	"github.com/truongquangDat1103/robot-homeguard/errors"
)

// Role represents the population a connection belongs to. The role is
// declared at handshake time and is immutable for the connection lifetime.
type Role string

// Connection role constants
const (
	RoleDevice           Role = "device"
	RoleInferenceAdapter Role = "inference-adapter"
	RoleOperatorClient   Role = "operator-client"
)

// Validate ensures the role is one of the enumerated connection roles
func (r Role) Validate() error {
	switch r {
	case RoleDevice, RoleInferenceAdapter, RoleOperatorClient:
		return nil
	default:
		return errors.WrapFatal(errors.ErrUnknownRole, "Role", "Validate",
			fmt.Sprintf("role %q is not device, inference-adapter or operator-client", string(r)))
	}
}

// GlobalRoom returns the role-global broadcast room for this role.
func (r Role) GlobalRoom() string {
	switch r {
	case RoleDevice:
		return "devices"
	case RoleInferenceAdapter:
		return "inference-adapters"
	case RoleOperatorClient:
		return "operator-clients"
	default:
		return ""
	}
}

// ScopedRoom returns the identifier-scoped room for this role, or "" when
// the identifier is empty. The mapping is deterministic and injective per
// role: two distinct identifiers never share a room.
func (r Role) ScopedRoom(id string) string {
	if id == "" {
		return ""
	}
	switch r {
	case RoleDevice:
		return "device:" + id
	case RoleInferenceAdapter:
		return "adapter:" + id
	case RoleOperatorClient:
		return "user:" + id
	default:
		return ""
	}
}
