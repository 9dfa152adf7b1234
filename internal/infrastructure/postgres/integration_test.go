//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
	"github.com/jhoicas/stock-ledger-api/pkg/config"
)

// setupDB levanta un PostgreSQL efímero con testcontainers, aplica el esquema
// y devuelve los repos listos. Ejecutar con: go test -tags integration ./...
func setupDB(t *testing.T) (*CatalogRepo, *LedgerRepo, *TxRunner) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stock_ledger_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, InitSchema(ctx, pool))

	return NewCatalogRepository(pool), NewLedgerRepository(pool), NewTxRunner(pool, 5*time.Second)
}

func testProduct(sku, name, variety string) *entity.Product {
	now := time.Now().UTC()
	return &entity.Product{
		SKU: sku, Name: name, Variety: variety,
		Price: decimal.NewFromInt(1000), Attributes: []byte(`{}`),
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
}

func TestIntegration_UpsertIdempotente(t *testing.T) {
	catalog, _, _ := setupDB(t)

	first, err := catalog.Upsert(testProduct("CAM-001", "Camiseta", "rojo"))
	require.NoError(t, err)

	second, err := catalog.Upsert(testProduct("CAM-001", "Camiseta básica", "rojo"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "ON CONFLICT debe devolver el id existente")

	ok, err := catalog.exists(first)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIntegration_UpsertBatchConClavesDuplicadas(t *testing.T) {
	catalog, _, _ := setupDB(t)

	// La misma clave dos veces en el lote: gana la última y no revienta el
	// statement multi-VALUES.
	out, err := catalog.UpsertBatch([]*entity.Product{
		testProduct("CAM-001", "Camiseta v1", "rojo"),
		testProduct("PAN-001", "Pantalón", ""),
		testProduct("CAM-001", "Camiseta v2", "rojo"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2, "claves duplicadas se deduplican")

	p, err := catalog.GetBySKU("CAM-001", "rojo")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Camiseta v2", p.Name)
}

func TestIntegration_ResolveAmbiguo(t *testing.T) {
	catalog, _, _ := setupDB(t)

	_, err := catalog.Upsert(testProduct("CAM-001", "Camiseta", "rojo"))
	require.NoError(t, err)
	_, err = catalog.Upsert(testProduct("CAM-001", "Camiseta", "azul"))
	require.NoError(t, err)

	_, err = catalog.ResolveID("CAM-001", "")
	assert.ErrorIs(t, err, domain.ErrAmbiguousVariant)

	_, err = catalog.ResolveID("CAM-001", "rojo")
	assert.NoError(t, err)

	_, err = catalog.ResolveID("NADA", "")
	var notFound *domain.ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestIntegration_LedgerSumas(t *testing.T) {
	catalog, ledger, _ := setupDB(t)

	id, err := catalog.Upsert(testProduct("CAM-001", "Camiseta", ""))
	require.NoError(t, err)

	require.NoError(t, ledger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementIN, Quantity: 20}))
	require.NoError(t, ledger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementOUT, Quantity: 7}))
	require.NoError(t, ledger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementADJUST, Quantity: -3}))

	qty, err := ledger.SumByProduct(id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty, "20 − 7 − 3")

	err = ledger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementOUT, Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "OUT negativo se rechaza antes de tocar la base")

	movs, err := ledger.ListByProduct(id, nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 3)
}

func TestIntegration_SearchAcentosInsensible(t *testing.T) {
	catalog, _, _ := setupDB(t)

	_, err := catalog.Upsert(testProduct("CAM-001", "Camiseta", ""))
	require.NoError(t, err)

	rows, err := catalog.Search("cámiseta", "")
	require.NoError(t, err)
	require.Len(t, rows, 1, "la búsqueda con acentos debe encontrar el nombre sin acentos")
	assert.Equal(t, "CAM-001", rows[0].Product.SKU)
}

// Dos vendedores concurrentes compiten por 10 unidades pidiendo 8 cada uno:
// con los row locks reales exactamente uno gana.
func TestIntegration_TxRunner_NoSobrevende(t *testing.T) {
	catalog, ledger, txRunner := setupDB(t)
	ctx := context.Background()

	id, err := catalog.Upsert(testProduct("CAM-001", "Camiseta", ""))
	require.NoError(t, err)
	require.NoError(t, ledger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementIN, Quantity: 10}))

	sell := func(qty int64) error {
		return txRunner.Run(ctx, func(txLedger repository.LedgerRepository, _ repository.CatalogRepository) error {
			current, err := txLedger.SumForUpdate(id)
			if err != nil {
				return err
			}
			if current < qty {
				return &domain.InsufficientStockError{Shortages: []domain.Shortage{{
					SKU: "CAM-001", Available: current, Requested: qty,
				}}}
			}
			return txLedger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementOUT, Quantity: qty})
		})
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- sell(8)
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "solo una de las dos ventas puede concretarse")
	assert.Equal(t, 1, insufficient)

	qty, err := ledger.SumByProduct(id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)
}

// El rollback de la tx descarta los Append previos al error.
func TestIntegration_TxRunner_Rollback(t *testing.T) {
	catalog, ledger, txRunner := setupDB(t)
	ctx := context.Background()

	id, err := catalog.Upsert(testProduct("CAM-001", "Camiseta", ""))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = txRunner.Run(ctx, func(txLedger repository.LedgerRepository, _ repository.CatalogRepository) error {
		if err := txLedger.Append(&entity.Movement{ProductID: id, Kind: entity.MovementIN, Quantity: 5}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	qty, err := ledger.SumByProduct(id)
	require.NoError(t, err)
	assert.Zero(t, qty, "el IN dentro de la tx abortada no debe quedar")
}
