// Package memory implementa todos los puertos de almacenamiento en proceso.
// Se usa con STORAGE_DRIVER=memory (desarrollo) y en las pruebas del motor de ventas.
// Las mutaciones del libro de inventario son atómicas bajo un mutex, igual que el UPDATE condicional en PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/domain/repository"
)

var (
	_ repository.StockLedger             = (*Store)(nil)
	_ repository.StockLocationRepository = (*LocationRepo)(nil)
	_ repository.CatalogLookup           = (*Store)(nil)
	_ repository.SaleRepository          = (*SaleRepo)(nil)
)

type stockKey struct {
	locationID int64
	productID  int64
}

type claim struct {
	owner *memTx
	done  chan struct{}
}

// Store almacenamiento en memoria seguro para uso concurrente.
type Store struct {
	mu             sync.Mutex
	nextLocationID int64
	locations      map[int64]*entity.StockLocation
	products       map[int64]*entity.ProductSnapshot
	stock          map[stockKey]*entity.StockEntry
	sales          map[string]*entity.Sale
	pending        map[string]*claim
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		locations: make(map[int64]*entity.StockLocation),
		products:  make(map[int64]*entity.ProductSnapshot),
		stock:     make(map[stockKey]*entity.StockEntry),
		sales:     make(map[string]*entity.Sale),
		pending:   make(map[string]*claim),
	}
}

// AddLocation registra un local de estoque y devuelve una copia con su ID asignado.
func (s *Store) AddLocation(name, description string) *entity.StockLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLocationID++
	loc := &entity.StockLocation{ID: s.nextLocationID, Name: name, Description: description}
	s.locations[loc.ID] = loc
	cp := *loc
	return &cp
}

// PutProduct agrega o reemplaza un producto del catálogo.
func (s *Store) PutProduct(p entity.ProductSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// Locations vista del almacén como StockLocationRepository.
func (s *Store) Locations() *LocationRepo { return &LocationRepo{s: s} }

// Sales vista del almacén como SaleRepository (cada escritura se confirma sola).
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// ── StockLocationRepository ──────────────────────────────────────────────────

// LocationRepo resuelve locales registrados con AddLocation.
type LocationRepo struct{ s *Store }

func (r *LocationRepo) GetByID(_ context.Context, id int64) (*entity.StockLocation, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (r *LocationRepo) GetByName(_ context.Context, name string) (*entity.StockLocation, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range s.locations {
		if strings.EqualFold(loc.Name, name) {
			cp := *loc
			return &cp, nil
		}
	}
	return nil, nil
}

// ── CatalogLookup ────────────────────────────────────────────────────────────

func (s *Store) GetProduct(_ context.Context, productID int64) (*entity.ProductSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ── StockLedger ──────────────────────────────────────────────────────────────

// TryDecrement compara y descuenta bajo el mismo lock.
func (s *Store) TryDecrement(_ context.Context, locationID, productID int64, amount int) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("try decrement: cantidad inválida %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stock[stockKey{locationID, productID}]
	if !ok || e.Quantity < amount {
		return false, nil
	}
	e.Quantity -= amount
	e.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) Increment(_ context.Context, locationID, productID int64, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("increment: cantidad inválida %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyDelta(stockKey{locationID, productID}, amount)
	return nil
}

func (s *Store) Quantity(_ context.Context, locationID, productID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.stock[stockKey{locationID, productID}]; ok {
		return e.Quantity, nil
	}
	return 0, nil
}

// applyDelta requiere s.mu tomado.
func (s *Store) applyDelta(k stockKey, delta int) {
	e, ok := s.stock[k]
	if !ok {
		e = &entity.StockEntry{LocationID: k.locationID, ProductID: k.productID}
		s.stock[k] = e
	}
	e.Quantity += delta
	if e.Quantity < 0 {
		e.Quantity = 0
	}
	e.UpdatedAt = time.Now().UTC()
}
