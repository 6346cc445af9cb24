// Package authz modela los privilegios de las cuentas y la verificación de capacidades
// (Authorization Gate). Es una decisión booleana opaca para el motor de ventas.
package authz

import (
	"context"

	"github.com/jhoicas/caja-api/internal/domain/entity"
)

// Claves de privilegio.
const (
	PrivAll                 = "ALL"
	PrivAdmin               = "ADMIN"
	PrivStatViewer          = "STAT_VIEWER"
	PrivAccountCreator      = "ACCOUNT_CREATOR"
	PrivMicroAccountCreator = "MICRO_ACCOUNT_CREATOR"
	PrivClientCreator       = "CLIENT_CREATOR"
	PrivNF                  = "NF"
	PrivFinance             = "FINANCE"
	PrivStockModifier       = "STOCK_MODIFIER"
	PrivStorageModifier     = "STORAGE_MODIFIER"
	PrivUndo                = "UNDO"
	PrivRedo                = "REDO"
	PrivDownStorage         = "DOWN_STORAGE"
	PrivBinding             = "BINDING"
	PrivPanelModifier       = "PANEL_MODIFIER"
)

// Capacidades consultadas por los casos de uso.
const (
	CapRegisterSale = PrivDownStorage
	CapModifyStock  = PrivStockModifier
	CapAdmin        = PrivAdmin
)

var allowedKeys = map[string]struct{}{
	PrivAll: {}, PrivAdmin: {}, PrivStatViewer: {}, PrivAccountCreator: {}, PrivMicroAccountCreator: {},
	PrivClientCreator: {}, PrivNF: {}, PrivFinance: {}, PrivStockModifier: {}, PrivStorageModifier: {},
	PrivUndo: {}, PrivRedo: {}, PrivDownStorage: {}, PrivBinding: {}, PrivPanelModifier: {},
}

// IsKnownPrivilege informa si key es una clave de privilegio válida.
func IsKnownPrivilege(key string) bool {
	_, ok := allowedKeys[key]
	return ok
}

// DefaultPrivileges privilegios por defecto de cada tipo de cuenta predefinido.
// CUSTOM no tiene valores por defecto: sus privilegios vienen explícitos.
func DefaultPrivileges(accountType string) map[string]bool {
	switch accountType {
	case entity.AccountOwner:
		return map[string]bool{PrivAll: true}
	case entity.AccountFull:
		return map[string]bool{
			PrivAdmin: true, PrivMicroAccountCreator: true, PrivClientCreator: true, PrivNF: true,
			PrivStockModifier: true, PrivStorageModifier: true, PrivUndo: true, PrivRedo: true,
		}
	case entity.AccountCaixa:
		return map[string]bool{
			PrivClientCreator: true, PrivNF: true, PrivDownStorage: true, PrivBinding: true,
		}
	case entity.AccountStorage:
		return map[string]bool{
			PrivStorageModifier: true, PrivUndo: true, PrivRedo: true, PrivDownStorage: true, PrivBinding: true,
		}
	case entity.AccountSupervisor:
		return map[string]bool{
			PrivMicroAccountCreator: true, PrivClientCreator: true, PrivUndo: true, PrivRedo: true,
		}
	default:
		return map[string]bool{}
	}
}

// Has informa si el llamador tiene el privilegio. ALL concede cualquier privilegio,
// aunque la clave específica esté en false.
func Has(caller entity.Caller, key string) bool {
	if caller.Privileges == nil {
		return false
	}
	return caller.Privileges[PrivAll] || caller.Privileges[key]
}

// PrivilegeGate implementa la verificación de capacidades sobre los privilegios que trae el token.
type PrivilegeGate struct{}

// NewPrivilegeGate construye el gate.
func NewPrivilegeGate() *PrivilegeGate { return &PrivilegeGate{} }

// Authorize decide si caller tiene la capacidad. Nunca falla: los privilegios ya vienen en el Caller.
func (g *PrivilegeGate) Authorize(_ context.Context, caller entity.Caller, capability string) (bool, error) {
	if caller.UserID == "" {
		return false, nil
	}
	return Has(caller, capability), nil
}
