package entity

// Tipos de cuenta.
const (
	AccountOwner      = "OWNER"
	AccountFull       = "FULL_MANAGEMENT"
	AccountCaixa      = "CAIXA"
	AccountStorage    = "STORAGE"
	AccountSupervisor = "SUPERVISOR"
	AccountCustom     = "CUSTOM"
)

// Caller identidad del llamador, tal como la entrega la capa de autenticación.
type Caller struct {
	UserID         string
	Name           string
	AccountType    string
	RegisterNumber string          // número de caja (solo cuentas CAIXA)
	Privileges     map[string]bool // claves de privilegio → habilitado
}
