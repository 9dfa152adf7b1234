package stock_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// memStore backend en memoria compartido por los fakes. El mutex juega el rol
// de los row locks del backend real: el fakeTxRunner lo retiene durante todo
// el callback, así dos transacciones concurrentes quedan serializadas igual
// que con SELECT FOR UPDATE.
type memStore struct {
	mu        sync.Mutex
	seq       int
	products  map[string]*entity.Product // por id
	movements []*entity.Movement
}

func newMemStore() *memStore {
	return &memStore{products: make(map[string]*entity.Product)}
}

// seedProduct registra un producto y devuelve su id.
func (s *memStore) seedProduct(sku, name, variety string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("prod-%04d", s.seq)
	s.products[id] = &entity.Product{
		ID: id, SKU: sku, Name: name, Variety: variety,
		Price: decimal.NewFromInt(100), IsActive: true,
	}
	return id
}

// seedMovement inserta un movimiento ya commiteado (para armar escenarios).
func (s *memStore) seedMovement(productID, kind string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.movements = append(s.movements, &entity.Movement{
		ID: fmt.Sprintf("mov-%04d", s.seq), ProductID: productID,
		Kind: kind, Quantity: qty, CreatedAt: time.Now(),
	})
}

// quantityLocked suma el ledger de un producto. Requiere mu retenido.
func (s *memStore) quantityLocked(productID string, staged []*entity.Movement) int64 {
	var total int64
	for _, m := range s.movements {
		total += effect(m, productID)
	}
	for _, m := range staged {
		total += effect(m, productID)
	}
	return total
}

func effect(m *entity.Movement, productID string) int64 {
	if m.ProductID != productID {
		return 0
	}
	switch m.Kind {
	case entity.MovementIN:
		return m.Quantity
	case entity.MovementOUT:
		return -m.Quantity
	default:
		return m.Quantity
	}
}

// movementsOf devuelve los movimientos commiteados de un producto.
func (s *memStore) movementsOf(productID string) []*entity.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Movement
	for _, m := range s.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// ── fakeCatalogRepo ───────────────────────────────────────────────────────────

// fakeCatalogRepo implementa repository.CatalogRepository sobre memStore.
// Replica la regla de desambiguación del backend real: variety vacía solo
// resuelve SKUs con una única fila.
type fakeCatalogRepo struct {
	store *memStore
}

var _ repository.CatalogRepository = (*fakeCatalogRepo)(nil)

func (f *fakeCatalogRepo) matches(sku, variety string) []*entity.Product {
	var out []*entity.Product
	for _, p := range f.store.products {
		if p.SKU == sku && (variety == "" || p.Variety == variety) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeCatalogRepo) ResolveID(sku, variety string) (string, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	list := f.matches(sku, variety)
	switch len(list) {
	case 0:
		return "", &domain.ProductNotFoundError{SKU: sku, Variety: variety}
	case 1:
		return list[0].ID, nil
	default:
		return "", domain.ErrAmbiguousVariant
	}
}

func (f *fakeCatalogRepo) Upsert(p *entity.Product) (string, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, existing := range f.store.products {
		if existing.SKU == p.SKU && existing.Variety == p.Variety {
			existing.Name, existing.Price = p.Name, p.Price
			p.ID = existing.ID
			return existing.ID, nil
		}
	}
	f.store.seq++
	p.ID = fmt.Sprintf("prod-%04d", f.store.seq)
	cp := *p
	f.store.products[p.ID] = &cp
	return p.ID, nil
}

func (f *fakeCatalogRepo) UpsertBatch(items []*entity.Product) ([]repository.ProductKeyID, error) {
	out := make([]repository.ProductKeyID, 0, len(items))
	for _, p := range items {
		id, err := f.Upsert(p)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.ProductKeyID{
			Key: repository.ProductKey{SKU: p.SKU, Variety: p.Variety}, ID: id,
		})
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetBySKU(sku, variety string) (*entity.Product, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	list := f.matches(sku, variety)
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return nil, domain.ErrAmbiguousVariant
	}
}

func (f *fakeCatalogRepo) Card(sku, variety string) (*repository.ProductStock, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	list := f.matches(sku, variety)
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return &repository.ProductStock{
			Product:  *list[0],
			Quantity: f.store.quantityLocked(list[0].ID, nil),
		}, nil
	default:
		return nil, domain.ErrAmbiguousVariant
	}
}

func (f *fakeCatalogRepo) ListVarieties(name string) ([]string, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, p := range f.store.products {
		if p.Name == name && p.Variety != "" && !seen[p.Variety] {
			seen[p.Variety] = true
			out = append(out, p.Variety)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeCatalogRepo) Search(q, variety string) ([]repository.ProductStock, error) {
	return nil, nil
}

// ── fakeTxRunner ──────────────────────────────────────────────────────────────

// fakeTxRunner implementa stock.TxRunner reteniendo el mutex del store durante
// todo el callback. Los Append van a un buffer staged que solo se commitea si
// fn devuelve nil: mismo contrato de rollback que la transacción real.
type fakeTxRunner struct {
	store *memStore
}

func (r *fakeTxRunner) Run(_ context.Context, fn func(
	ledger repository.LedgerRepository,
	catalog repository.CatalogRepository,
) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := &txLedger{store: r.store}
	if err := fn(tx, &fakeCatalogRepo{store: r.store}); err != nil {
		return err // staged se descarta
	}
	r.store.movements = append(r.store.movements, tx.staged...)
	return nil
}

// txLedger vista del ledger atada a una "transacción" del fakeTxRunner.
// Asume que el mutex del store ya está retenido.
type txLedger struct {
	store  *memStore
	staged []*entity.Movement
}

var _ repository.LedgerRepository = (*txLedger)(nil)

func (l *txLedger) Append(m *entity.Movement) error {
	switch m.Kind {
	case entity.MovementIN, entity.MovementOUT:
		if m.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
	case entity.MovementADJUST:
		if m.Quantity == 0 {
			return domain.ErrInvalidInput
		}
	default:
		return domain.ErrInvalidInput
	}
	l.store.seq++
	cp := *m
	cp.ID = fmt.Sprintf("mov-%04d", l.store.seq)
	cp.CreatedAt = time.Now()
	l.staged = append(l.staged, &cp)
	return nil
}

func (l *txLedger) SumByProduct(productID string) (int64, error) {
	return l.store.quantityLocked(productID, l.staged), nil
}

func (l *txLedger) SumByProducts(productIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(productIDs))
	for _, id := range productIDs {
		out[id] = l.store.quantityLocked(id, l.staged)
	}
	return out, nil
}

func (l *txLedger) SumForUpdate(productID string) (int64, error) {
	if _, ok := l.store.products[productID]; !ok {
		return 0, domain.ErrNotFound
	}
	return l.store.quantityLocked(productID, l.staged), nil
}

func (l *txLedger) SumManyForUpdate(productIDs []string) (map[string]int64, error) {
	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		qty, err := l.SumForUpdate(id)
		if err != nil {
			return nil, err
		}
		out[id] = qty
	}
	return out, nil
}

func (l *txLedger) ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range l.store.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

// poolLedger vista sin transacción (lecturas del Aggregator): toma el lock
// por operación, como un repo atado al pool.
type poolLedger struct {
	store *memStore
}

var _ repository.LedgerRepository = (*poolLedger)(nil)

func (l *poolLedger) Append(m *entity.Movement) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	cp := *m
	l.store.movements = append(l.store.movements, &cp)
	return nil
}

func (l *poolLedger) SumByProduct(productID string) (int64, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.store.quantityLocked(productID, nil), nil
}

func (l *poolLedger) SumByProducts(productIDs []string) (map[string]int64, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make(map[string]int64, len(productIDs))
	for _, id := range productIDs {
		out[id] = l.store.quantityLocked(id, nil)
	}
	return out, nil
}

func (l *poolLedger) SumForUpdate(productID string) (int64, error) {
	return l.SumByProduct(productID)
}

func (l *poolLedger) SumManyForUpdate(productIDs []string) (map[string]int64, error) {
	return l.SumByProducts(productIDs)
}

func (l *poolLedger) ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	return l.store.movementsOf(productID), nil
}
