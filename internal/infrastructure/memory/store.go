package memory

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Store almacén en memoria del libro de stock: productos indexados por ID y un arena
// de movimientos en orden de commit con índices por ID y por producto.
// Los datos solo cambian en commit; las lecturas devuelven copias.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	movements []*entity.StockMovement
	byID      map[string]int
	byProduct map[string][]int
	seq       atomic.Int64
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		movements: make([]*entity.StockMovement, 0),
		byID:      make(map[string]int),
		byProduct: make(map[string][]int),
	}
}

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

func (s *Store) nextSequence() int64 { return s.seq.Add(1) }

// tx cambios pendientes de una transacción; se aplican juntos en commit o se descartan.
type tx struct {
	products  map[string]entity.Product
	movements []*entity.StockMovement
	statuses  map[string]entity.ReservationStatus
}

func newTx() *tx {
	return &tx{
		products: make(map[string]entity.Product),
		statuses: make(map[string]entity.ReservationStatus),
	}
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range t.products {
		p := p
		s.products[id] = &p
	}
	for _, m := range t.movements {
		s.appendLocked(m)
	}
	for id, status := range t.statuses {
		if idx, ok := s.byID[id]; ok {
			s.movements[idx].ReservationStatus = status
		}
	}
}

func (s *Store) appendLocked(m *entity.StockMovement) {
	idx := len(s.movements)
	s.movements = append(s.movements, m)
	s.byID[m.ID] = idx
	s.byProduct[m.ProductID] = append(s.byProduct[m.ProductID], idx)
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	return &c
}

func sortBySequence(list []*entity.StockMovement) {
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
}
