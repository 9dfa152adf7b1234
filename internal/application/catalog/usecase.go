package catalog

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// Resolver resuelve identidades de catálogo (SKU + variante → id durable) y
// es dueño del upsert de catálogo. La validación ocurre aquí, antes de que
// cualquier operación tome un lock: los errores de entrada no tienen efectos.
type Resolver struct {
	repo repository.CatalogRepository
}

// NewResolver construye el resolver de catálogo.
func NewResolver(repo repository.CatalogRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Upsert crea o actualiza un producto por (sku, variety). Idempotente con la
// misma entrada: mismo id, sin fila duplicada.
func (r *Resolver) Upsert(in dto.ProductUpsertRequest) (*dto.ProductUpsertResponse, error) {
	p, err := toEntity(in)
	if err != nil {
		return nil, err
	}
	id, err := r.repo.Upsert(p)
	if err != nil {
		return nil, err
	}
	return &dto.ProductUpsertResponse{ID: id, SKU: p.SKU, Variety: p.Variety}, nil
}

// UpsertBatch upserta una lista como unidad todo-o-nada: ningún caller
// observa un catálogo parcialmente actualizado.
func (r *Resolver) UpsertBatch(items []dto.ProductUpsertRequest) ([]dto.ProductUpsertResponse, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	entities := make([]*entity.Product, 0, len(items))
	for _, in := range items {
		p, err := toEntity(in)
		if err != nil {
			return nil, err
		}
		entities = append(entities, p)
	}
	rows, err := r.repo.UpsertBatch(entities)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductUpsertResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.ProductUpsertResponse{ID: row.ID, SKU: row.Key.SKU, Variety: row.Key.Variety})
	}
	return out, nil
}

// Resolve devuelve el id durable para (sku, variety). Con variety vacía solo
// matchea si el SKU es inequívoco; con varias variantes sin especificar
// devuelve domain.ErrAmbiguousVariant.
func (r *Resolver) Resolve(sku, variety string) (string, error) {
	if sku == "" {
		return "", domain.ErrInvalidInput
	}
	return r.repo.ResolveID(sku, variety)
}

// ResolveMany resuelve todas las claves, fallando rápido en el primer item
// no resuelto (se usa para validar un pedido completo antes de tomar locks).
func (r *Resolver) ResolveMany(keys []repository.ProductKey) (map[repository.ProductKey]string, error) {
	ids := make(map[repository.ProductKey]string, len(keys))
	for _, k := range keys {
		if _, ok := ids[k]; ok {
			continue
		}
		id, err := r.repo.ResolveID(k.SKU, k.Variety)
		if err != nil {
			return nil, err
		}
		ids[k] = id
	}
	return ids, nil
}

// GetPrice devuelve el precio vigente de catálogo.
func (r *Resolver) GetPrice(sku, variety string) (*dto.PriceResponse, error) {
	p, err := r.repo.GetBySKU(sku, variety)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ProductNotFoundError{SKU: sku, Variety: variety}
	}
	return &dto.PriceResponse{SKU: p.SKU, Variety: p.Variety, Price: p.Price}, nil
}

// GetStock devuelve cantidad y disponibilidad. Un SKU desconocido o sin
// movimientos responde quantity=0, available=false (comportamiento del
// endpoint original, no es error).
func (r *Resolver) GetStock(sku, variety string) (*dto.StockResponse, error) {
	card, err := r.repo.Card(sku, variety)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return &dto.StockResponse{SKU: sku, Variety: variety, Quantity: 0, Available: false}, nil
	}
	return &dto.StockResponse{
		SKU:       card.Product.SKU,
		Variety:   card.Product.Variety,
		Quantity:  card.Quantity,
		Available: card.Quantity > 0,
	}, nil
}

// ProductCard devuelve la ficha completa (catálogo + stock vivo).
func (r *Resolver) ProductCard(sku, variety string) (*dto.ProductCardResponse, error) {
	card, err := r.repo.Card(sku, variety)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, &domain.ProductNotFoundError{SKU: sku, Variety: variety}
	}
	return toCardDTO(card), nil
}

// ListVarieties lista las variantes registradas para un nombre de producto.
func (r *Resolver) ListVarieties(name string) (*dto.VarietiesResponse, error) {
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	vs, err := r.repo.ListVarieties(name)
	if err != nil {
		return nil, err
	}
	return &dto.VarietiesResponse{Name: name, Varieties: vs}, nil
}

// Search busca por coincidencia parcial en SKU o nombre.
func (r *Resolver) Search(q, variety string) (*dto.SearchResponse, error) {
	if q == "" {
		return nil, domain.ErrInvalidInput
	}
	rows, err := r.repo.Search(q, variety)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductCardResponse, 0, len(rows))
	for i := range rows {
		items = append(items, *toCardDTO(&rows[i]))
	}
	return &dto.SearchResponse{Count: len(items), Items: items}, nil
}

// toEntity valida y normaliza el request de upsert.
func toEntity(in dto.ProductUpsertRequest) (*entity.Product, error) {
	if in.SKU == "" || in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Price.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	attrs := in.Attributes
	if len(attrs) == 0 {
		attrs = json.RawMessage(`{}`)
	} else if !json.Valid(attrs) {
		return nil, domain.ErrInvalidInput
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := time.Now()
	return &entity.Product{
		SKU:        in.SKU,
		Name:       in.Name,
		Variety:    in.Variety,
		Price:      in.Price,
		Attributes: attrs,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func toCardDTO(row *repository.ProductStock) *dto.ProductCardResponse {
	return &dto.ProductCardResponse{
		SKU:       row.Product.SKU,
		Name:      row.Product.Name,
		Variety:   row.Product.Variety,
		Price:     row.Product.Price,
		Quantity:  row.Quantity,
		Available: row.Quantity > 0,
	}
}
