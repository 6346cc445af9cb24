package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrValidation          = errors.New("entrada inválida")
	ErrLocationNotFound    = errors.New("local de estoque no encontrado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrDuplicateSale       = errors.New("venta duplicada")
	ErrAuthorizationDenied = errors.New("acceso denegado")
	ErrPersistence         = errors.New("falla de persistencia")
)

// ValidationError indica qué campo del pedido es inválido. Se rechaza antes de tocar el almacenamiento.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError identifica el producto sin stock y la cantidad disponible al momento del rechazo.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s para el producto %d: solicitado %d, disponible %d",
		ErrInsufficientStock, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// PersistenceError envuelve fallos de infraestructura (DB caída, timeout, commit fallido).
// Siempre es seguro reintentar la operación completa.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Retryable informa que el llamador puede reintentar.
func (e *PersistenceError) Retryable() bool { return true }

// Persistence envuelve err como PersistenceError. Los errores de negocio se devuelven tal cual.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsBusiness(err) || errors.Is(err, ErrPersistence) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsBusiness informa si err pertenece a la taxonomía de reglas de negocio (no reintentable).
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateSale) ||
		errors.Is(err, ErrAuthorizationDenied) ||
		errors.Is(err, ErrNotFound)
}
