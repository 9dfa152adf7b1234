package stock_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/stock"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// newCoordinator arma un Coordinator completo sobre el store en memoria.
func newCoordinator(store *memStore) *stock.Coordinator {
	resolver := catalog.NewResolver(&fakeCatalogRepo{store: store})
	return stock.NewCoordinator(&fakeTxRunner{store: store}, resolver)
}

// ──────────────────────────────────────────────────────────────────────────────
// Restock / BatchRestock
// ──────────────────────────────────────────────────────────────────────────────

func TestRestock_RegistraEntrada(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	uc := newCoordinator(store)

	err := uc.Restock(context.Background(), dto.RestockRequest{SKU: "CAM-001", Quantity: 10, RefID: "FAC-77"})
	require.NoError(t, err)

	movs := store.movementsOf(id)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementIN, movs[0].Kind)
	assert.Equal(t, int64(10), movs[0].Quantity)
	assert.Equal(t, "supplier", movs[0].Source)
	assert.Equal(t, "FAC-77", movs[0].RefID)
}

func TestRestock_CantidadInvalida(t *testing.T) {
	store := newMemStore()
	store.seedProduct("CAM-001", "Camiseta", "")
	uc := newCoordinator(store)

	for _, qty := range []int64{0, -5} {
		err := uc.Restock(context.Background(), dto.RestockRequest{SKU: "CAM-001", Quantity: qty})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad %d debe rechazarse", qty)
	}
	assert.Zero(t, store.movementCount(), "una entrada inválida no escribe nada")
}

func TestRestock_ProductoInexistente(t *testing.T) {
	store := newMemStore()
	uc := newCoordinator(store)

	err := uc.Restock(context.Background(), dto.RestockRequest{SKU: "NADA", Quantity: 5})
	var notFound *domain.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "NADA", notFound.SKU)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBatchRestock_TodoONada_SKUDesconocido(t *testing.T) {
	store := newMemStore()
	store.seedProduct("CAM-001", "Camiseta", "")
	uc := newCoordinator(store)

	err := uc.BatchRestock(context.Background(), dto.BatchRestockRequest{
		RefID: "GRN-1",
		Items: []dto.RestockRequest{
			{SKU: "CAM-001", Quantity: 5},
			{SKU: "NO-EXISTE", Quantity: 3},
		},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, store.movementCount(), "un SKU desconocido aborta el lote completo")
}

func TestBatchRestock_HeredaRefYNotas(t *testing.T) {
	store := newMemStore()
	idA := store.seedProduct("CAM-001", "Camiseta", "")
	idB := store.seedProduct("PAN-001", "Pantalón", "")
	uc := newCoordinator(store)

	err := uc.BatchRestock(context.Background(), dto.BatchRestockRequest{
		Supplier: "acme",
		RefID:    "GRN-9",
		Notes:    "reposición semanal",
		Items: []dto.RestockRequest{
			{SKU: "CAM-001", Quantity: 5},
			{SKU: "PAN-001", Quantity: 3, RefID: "propio", Notes: "urgente"},
		},
	})
	require.NoError(t, err)

	a := store.movementsOf(idA)
	require.Len(t, a, 1)
	assert.Equal(t, "GRN-9", a[0].RefID)
	assert.Equal(t, "reposición semanal", a[0].Notes)
	assert.Equal(t, "acme", a[0].Source)

	b := store.movementsOf(idB)
	require.Len(t, b, 1)
	assert.Equal(t, "propio", b[0].RefID, "el ref propio del item gana sobre el del batch")
	assert.Equal(t, "urgente", b[0].Notes)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sell
// ──────────────────────────────────────────────────────────────────────────────

func TestSell_DescuentaStock(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	store.seedMovement(id, entity.MovementIN, 10)
	uc := newCoordinator(store)

	err := uc.Sell(context.Background(), dto.SellRequest{SKU: "CAM-001", Quantity: 3})
	require.NoError(t, err)

	movs := store.movementsOf(id)
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementOUT, movs[1].Kind)
	assert.Equal(t, "sale", movs[1].Source)

	agg := stock.NewAggregator(&poolLedger{store: store})
	qty, err := agg.QuantityOf(id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), qty)
}

func TestSell_SinStockSuficiente(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	store.seedMovement(id, entity.MovementIN, 2)
	uc := newCoordinator(store)

	err := uc.Sell(context.Background(), dto.SellRequest{SKU: "CAM-001", Quantity: 5})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 1)
	assert.Equal(t, int64(2), insufficient.Shortages[0].Available)
	assert.Equal(t, int64(5), insufficient.Shortages[0].Requested)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Len(t, store.movementsOf(id), 1, "una venta rechazada no escribe OUT")
}

func TestSell_VarianteAmbigua(t *testing.T) {
	store := newMemStore()
	store.seedProduct("CAM-001", "Camiseta", "rojo")
	store.seedProduct("CAM-001", "Camiseta", "azul")
	uc := newCoordinator(store)

	err := uc.Sell(context.Background(), dto.SellRequest{SKU: "CAM-001", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrAmbiguousVariant,
		"SKU con variantes sin especificar debe ser ambiguo")
}

func TestSell_VarianteExplicitaResuelve(t *testing.T) {
	store := newMemStore()
	idRojo := store.seedProduct("CAM-001", "Camiseta", "rojo")
	store.seedProduct("CAM-001", "Camiseta", "azul")
	store.seedMovement(idRojo, entity.MovementIN, 4)
	uc := newCoordinator(store)

	err := uc.Sell(context.Background(), dto.SellRequest{SKU: "CAM-001", Variety: "rojo", Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, store.movementsOf(idRojo), 2)
}

// Diez vendedores concurrentes compitiendo por 50 unidades en lotes de 10:
// exactamente 5 deben ganar y el stock final debe ser 0, nunca negativo.
func TestSell_Concurrente_NoSobrevende(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	store.seedMovement(id, entity.MovementIN, 50)
	uc := newCoordinator(store)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- uc.Sell(context.Background(), dto.SellRequest{SKU: "CAM-001", Quantity: 10})
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInsufficientStock,
			"la única falla admisible bajo contención es stock insuficiente")
		rejected++
	}
	assert.Equal(t, 5, ok, "deben concretarse exactamente 5 ventas de 10")
	assert.Equal(t, 5, rejected)

	agg := stock.NewAggregator(&poolLedger{store: store})
	qty, err := agg.QuantityOf(id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty, "el stock final nunca puede quedar negativo")
}

// ──────────────────────────────────────────────────────────────────────────────
// SellOrder
// ──────────────────────────────────────────────────────────────────────────────

func TestSellOrder_Exitoso(t *testing.T) {
	store := newMemStore()
	idA := store.seedProduct("CAM-001", "Camiseta", "")
	idB := store.seedProduct("PAN-001", "Pantalón", "")
	store.seedMovement(idA, entity.MovementIN, 10)
	store.seedMovement(idB, entity.MovementIN, 5)
	uc := newCoordinator(store)

	err := uc.SellOrder(context.Background(), dto.SellOrderRequest{
		OrderID: "ORD-123",
		Channel: "whatsapp",
		Items: []dto.OrderItemRequest{
			{SKU: "CAM-001", Quantity: 2},
			{SKU: "PAN-001", Quantity: 1},
		},
	})
	require.NoError(t, err)

	outA := store.movementsOf(idA)[1]
	assert.Equal(t, entity.MovementOUT, outA.Kind)
	assert.Equal(t, "ORD-123", outA.RefID, "cada línea lleva el order_id como referencia")
	assert.Equal(t, "whatsapp", outA.Source)

	outB := store.movementsOf(idB)[1]
	assert.Equal(t, "ORD-123", outB.RefID)
}

func TestSellOrder_RecolectaTodosLosFaltantes(t *testing.T) {
	store := newMemStore()
	idA := store.seedProduct("CAM-001", "Camiseta", "")
	idB := store.seedProduct("PAN-001", "Pantalón", "")
	store.seedProduct("ZAP-001", "Zapatos", "") // sin movimientos: pedirá 4 → falta
	store.seedMovement(idA, entity.MovementIN, 1) // pedirá 3 → falta
	store.seedMovement(idB, entity.MovementIN, 9) // pedirá 2 → alcanza
	uc := newCoordinator(store)

	before := store.movementCount()
	err := uc.SellOrder(context.Background(), dto.SellOrderRequest{
		OrderID: "ORD-500",
		Items: []dto.OrderItemRequest{
			{SKU: "CAM-001", Quantity: 3},
			{SKU: "PAN-001", Quantity: 2},
			{SKU: "ZAP-001", Quantity: 4},
		},
	})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 2, "deben reportarse TODOS los faltantes, no solo el primero")

	bySKU := map[string]domain.Shortage{}
	for _, s := range insufficient.Shortages {
		bySKU[s.SKU] = s
	}
	assert.Equal(t, int64(1), bySKU["CAM-001"].Available)
	assert.Equal(t, int64(3), bySKU["CAM-001"].Requested)
	assert.Equal(t, int64(0), bySKU["ZAP-001"].Available)
	assert.Equal(t, int64(4), bySKU["ZAP-001"].Requested)
	assert.NotContains(t, bySKU, "PAN-001", "el item con stock suficiente no aparece en faltantes")

	assert.Equal(t, before, store.movementCount(),
		"un pedido con faltantes no escribe ninguna línea, ni las que alcanzaban")
}

func TestSellOrder_LineasDuplicadasValidanContraElTotal(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	store.seedMovement(id, entity.MovementIN, 5)
	uc := newCoordinator(store)

	// Dos líneas de 3 sobre stock 5: cada línea alcanza sola, el total no.
	err := uc.SellOrder(context.Background(), dto.SellOrderRequest{
		OrderID: "ORD-777",
		Items: []dto.OrderItemRequest{
			{SKU: "CAM-001", Quantity: 3},
			{SKU: "CAM-001", Quantity: 3},
		},
	})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 1)
	assert.Equal(t, int64(5), insufficient.Shortages[0].Available)
	assert.Equal(t, int64(6), insufficient.Shortages[0].Requested,
		"las líneas del mismo producto se validan contra la suma")
	assert.Len(t, store.movementsOf(id), 1)
}

func TestSellOrder_ValidacionDeEntrada(t *testing.T) {
	store := newMemStore()
	store.seedProduct("CAM-001", "Camiseta", "")
	uc := newCoordinator(store)
	ctx := context.Background()

	err := uc.SellOrder(ctx, dto.SellOrderRequest{OrderID: "", Items: []dto.OrderItemRequest{{SKU: "CAM-001", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "order_id es obligatorio")

	err = uc.SellOrder(ctx, dto.SellOrderRequest{OrderID: "ORD-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "items vacíos es inválido")

	err = uc.SellOrder(ctx, dto.SellOrderRequest{OrderID: "ORD-1", Items: []dto.OrderItemRequest{{SKU: "CAM-001", Quantity: 0}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "cantidad cero es inválida")

	assert.Zero(t, store.movementCount())
}

// ──────────────────────────────────────────────────────────────────────────────
// Adjust / Aggregator
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjust_DeltaConSigno(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	store.seedMovement(id, entity.MovementIN, 10)
	uc := newCoordinator(store)
	ctx := context.Background()

	require.NoError(t, uc.Adjust(ctx, dto.RestockRequest{SKU: "CAM-001", Quantity: -4, Notes: "merma"}))
	require.NoError(t, uc.Adjust(ctx, dto.RestockRequest{SKU: "CAM-001", Quantity: 2}))

	err := uc.Adjust(ctx, dto.RestockRequest{SKU: "CAM-001", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "delta cero es inválido")

	agg := stock.NewAggregator(&poolLedger{store: store})
	qty, err := agg.QuantityOf(id)
	require.NoError(t, err)
	assert.Equal(t, int64(8), qty, "10 − 4 + 2")
}

func TestAggregator_SumaPorTipoDeMovimiento(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	other := store.seedProduct("PAN-001", "Pantalón", "")
	store.seedMovement(id, entity.MovementIN, 20)
	store.seedMovement(id, entity.MovementOUT, 7)
	store.seedMovement(id, entity.MovementADJUST, -3)
	store.seedMovement(id, entity.MovementADJUST, 1)
	store.seedMovement(other, entity.MovementIN, 99) // no debe mezclarse

	agg := stock.NewAggregator(&poolLedger{store: store})

	qty, err := agg.QuantityOf(id)
	require.NoError(t, err)
	assert.Equal(t, int64(11), qty, "20 − 7 − 3 + 1")

	all, err := agg.QuantitiesOf([]string{id, other})
	require.NoError(t, err)
	assert.Equal(t, int64(11), all[id])
	assert.Equal(t, int64(99), all[other])
}

func TestAggregator_SinMovimientosEsCero(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")

	agg := stock.NewAggregator(&poolLedger{store: store})
	qty, err := agg.QuantityOf(id)
	require.NoError(t, err)
	assert.Zero(t, qty)
}

// El error del backend debe atravesar el coordinador sin ser maquillado.
func TestSell_ErrorDelBackendSePropaga(t *testing.T) {
	store := newMemStore()
	id := store.seedProduct("CAM-001", "Camiseta", "")
	store.seedMovement(id, entity.MovementIN, 10)

	backendErr := fmt.Errorf("%w: lock timeout", domain.ErrTransient)
	resolver := catalog.NewResolver(&fakeCatalogRepo{store: store})
	uc := stock.NewCoordinator(&failingTxRunner{err: backendErr}, resolver)

	err := uc.Sell(context.Background(), dto.SellRequest{SKU: "CAM-001", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Len(t, store.movementsOf(id), 1, "una tx fallida no escribe nada")
}

// failingTxRunner implementa stock.TxRunner fallando siempre, como lo haría
// el runner real ante un timeout de lock o una caída de conexión.
type failingTxRunner struct {
	err error
}

var _ stock.TxRunner = (*failingTxRunner)(nil)

func (r *failingTxRunner) Run(_ context.Context, _ func(
	ledger repository.LedgerRepository,
	catalog repository.CatalogRepository,
) error) error {
	return r.err
}
