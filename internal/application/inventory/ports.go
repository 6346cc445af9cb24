package inventory

import (
	"context"

	"github.com/jhoicas/caja-api/internal/domain/entity"
)

// Authorizer decide si el llamador tiene una capacidad (ver authz.PrivilegeGate).
type Authorizer interface {
	Authorize(ctx context.Context, caller entity.Caller, capability string) (bool, error)
}
