package repository

import "github.com/jhoicas/stock-ledger-api/internal/domain/entity"

// ProductKey identifica un producto del catálogo por (SKU, variante).
// Variety vacía significa "sin variante" al hacer upsert, y "sin especificar"
// al resolver (ahí solo matchea si el SKU es inequívoco).
type ProductKey struct {
	SKU     string
	Variety string
}

// ProductStock es una fila de lectura: producto + cantidad derivada del ledger.
type ProductStock struct {
	Product  entity.Product
	Quantity int64
}

// CatalogRepository define el puerto de persistencia del catálogo (DIP).
// El upsert debe ser un primitivo atómico insert-or-update por clave única,
// nunca check-then-write.
type CatalogRepository interface {
	// Upsert crea el producto si (sku, variety) es nuevo; si no, actualiza
	// name, price, attributes e is_active preservando id y movimientos.
	// Devuelve el id del producto.
	Upsert(p *entity.Product) (string, error)
	// UpsertBatch aplica Upsert a todos los items como una unidad atómica.
	UpsertBatch(items []*entity.Product) ([]ProductKeyID, error)
	// ResolveID devuelve el id para (sku, variety). Con variety vacía solo
	// resuelve si el SKU tiene una única fila; si hay varias variantes
	// devuelve domain.ErrAmbiguousVariant. Si no existe,
	// *domain.ProductNotFoundError.
	ResolveID(sku, variety string) (string, error)
	// GetBySKU devuelve el producto o nil si no existe.
	GetBySKU(sku, variety string) (*entity.Product, error)
	// Card devuelve producto + cantidad derivada del ledger (sin bloqueo).
	Card(sku, variety string) (*ProductStock, error)
	// ListVarieties lista variantes distintas para un nombre de producto.
	ListVarieties(name string) ([]string, error)
	// Search busca por coincidencia parcial en SKU o nombre, insensible a
	// mayúsculas y acentos, con filtro opcional de variante.
	Search(q, variety string) ([]ProductStock, error)
}

// ProductKeyID asocia la clave de catálogo con el id persistido (respuesta de UpsertBatch).
type ProductKeyID struct {
	Key ProductKey
	ID  string
}
