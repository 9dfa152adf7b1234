package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// sumExpr deriva la cantidad de un producto desde el ledger. ADJUST lleva su
// propio signo y se suma directo.
const sumExpr = `COALESCE(SUM(CASE
		WHEN movement = 'IN' THEN quantity
		WHEN movement = 'OUT' THEN -quantity
		ELSE quantity
	END), 0)`

// CatalogRepo implementación de CatalogRepository sobre PostgreSQL (usable con pool o tx).
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador de catálogo. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// Upsert inserta o actualiza por (sku, variety) en un solo statement atómico.
// Nunca check-then-write: dos upserts concurrentes del mismo SKU nuevo no
// pueden crear filas duplicadas.
func (r *CatalogRepo) Upsert(p *entity.Product) (string, error) {
	query := `
		INSERT INTO products (id, sku, name, variety, price, attributes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (sku, variety) DO UPDATE
		SET name = EXCLUDED.name,
		    price = EXCLUDED.price,
		    attributes = EXCLUDED.attributes,
		    is_active = EXCLUDED.is_active,
		    updated_at = EXCLUDED.updated_at
		RETURNING id`
	var id string
	err := r.q.QueryRow(context.Background(), query,
		uuid.New().String(), p.SKU, p.Name, p.Variety, p.Price, p.Attributes,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert product: %w", err)
	}
	p.ID = id
	return id, nil
}

// UpsertBatch upserta todos los items en UN solo statement multi-VALUES:
// atómico sin transacción explícita, nadie observa un catálogo parcial.
// Claves repetidas dentro del batch se deduplican (gana la última) porque
// ON CONFLICT no puede afectar la misma fila dos veces en un statement.
func (r *CatalogRepo) UpsertBatch(items []*entity.Product) ([]repository.ProductKeyID, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	byKey := make(map[repository.ProductKey]*entity.Product, len(items))
	order := make([]repository.ProductKey, 0, len(items))
	for _, p := range items {
		k := repository.ProductKey{SKU: p.SKU, Variety: p.Variety}
		if _, dup := byKey[k]; !dup {
			order = append(order, k)
		}
		byKey[k] = p
	}

	var sb strings.Builder
	args := make([]any, 0, len(order)*9)
	for i, k := range order {
		p := byKey[k]
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)
		args = append(args,
			uuid.New().String(), p.SKU, p.Name, p.Variety, p.Price, p.Attributes,
			p.IsActive, p.CreatedAt, p.UpdatedAt,
		)
	}
	query := fmt.Sprintf(`
		INSERT INTO products (id, sku, name, variety, price, attributes, is_active, created_at, updated_at)
		VALUES %s
		ON CONFLICT (sku, variety) DO UPDATE
		SET name = EXCLUDED.name,
		    price = EXCLUDED.price,
		    attributes = EXCLUDED.attributes,
		    is_active = EXCLUDED.is_active,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, sku, variety`, sb.String())

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("upsert products batch: %w", err)
	}
	defer rows.Close()

	idByKey := make(map[repository.ProductKey]string, len(order))
	for rows.Next() {
		var id, sku, variety string
		if err := rows.Scan(&id, &sku, &variety); err != nil {
			return nil, fmt.Errorf("scan upsert batch: %w", err)
		}
		idByKey[repository.ProductKey{SKU: sku, Variety: variety}] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("upsert products batch: %w", err)
	}

	out := make([]repository.ProductKeyID, 0, len(order))
	for _, k := range order {
		out = append(out, repository.ProductKeyID{Key: k, ID: idByKey[k]})
	}
	return out, nil
}

// ResolveID mapea (sku, variety) a id durable. Con variety vacía solo
// resuelve si el SKU tiene una única fila; con varias devuelve
// ErrAmbiguousVariant (el caller debe especificar la variante).
func (r *CatalogRepo) ResolveID(sku, variety string) (string, error) {
	query := `SELECT id FROM products WHERE sku = $1 AND ($2 = '' OR variety = $2) LIMIT 3`
	rows, err := r.q.Query(context.Background(), query, sku, variety)
	if err != nil {
		return "", fmt.Errorf("resolve product: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan resolve: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve product: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", &domain.ProductNotFoundError{SKU: sku, Variety: variety}
	case 1:
		return ids[0], nil
	default:
		return "", domain.ErrAmbiguousVariant
	}
}

// GetBySKU devuelve el producto o nil si no existe. Misma regla de
// desambiguación que ResolveID.
func (r *CatalogRepo) GetBySKU(sku, variety string) (*entity.Product, error) {
	query := `
		SELECT id, sku, name, variety, price, attributes, is_active, created_at, updated_at
		FROM products WHERE sku = $1 AND ($2 = '' OR variety = $2) LIMIT 3`
	rows, err := r.q.Query(context.Background(), query, sku, variety)
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	defer rows.Close()

	var list []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Variety, &p.Price,
			&p.Attributes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return nil, domain.ErrAmbiguousVariant
	}
}

// Card devuelve producto + cantidad derivada del ledger en una sola consulta
// (lectura sin bloqueo; dentro de una tx con lock la suma se recalcula con
// SumForUpdate, nunca con esta vía).
func (r *CatalogRepo) Card(sku, variety string) (*repository.ProductStock, error) {
	query := `
		SELECT p.id, p.sku, p.name, p.variety, p.price, p.attributes, p.is_active,
		       p.created_at, p.updated_at, COALESCE(l.qty, 0)
		FROM products p
		LEFT JOIN LATERAL (
			SELECT ` + sumExpr + ` AS qty
			FROM stock_ledger WHERE product_id = p.id
		) l ON TRUE
		WHERE p.sku = $1 AND ($2 = '' OR p.variety = $2) LIMIT 3`
	rows, err := r.q.Query(context.Background(), query, sku, variety)
	if err != nil {
		return nil, fmt.Errorf("product card: %w", err)
	}
	defer rows.Close()

	var list []repository.ProductStock
	for rows.Next() {
		var row repository.ProductStock
		p := &row.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Variety, &p.Price, &p.Attributes,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product card: %w", err)
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return &list[0], nil
	default:
		return nil, domain.ErrAmbiguousVariant
	}
}

// ListVarieties lista variantes distintas para productos cuyo nombre matchea.
func (r *CatalogRepo) ListVarieties(name string) ([]string, error) {
	query := `
		SELECT DISTINCT variety FROM products
		WHERE name ILIKE $1 AND variety <> ''
		ORDER BY variety`
	rows, err := r.q.Query(context.Background(), query, "%"+name+"%")
	if err != nil {
		return nil, fmt.Errorf("list varieties: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan variety: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Search busca por coincidencia parcial en SKU o nombre. Además del patrón
// literal se prueba el patrón normalizado (minúsculas sin acentos) para que
// "cámiseta" encuentre "Camiseta".
func (r *CatalogRepo) Search(q, variety string) ([]repository.ProductStock, error) {
	raw := "%" + q + "%"
	folded := "%" + foldText(q) + "%"
	query := `
		SELECT p.id, p.sku, p.name, p.variety, p.price, p.attributes, p.is_active,
		       p.created_at, p.updated_at, COALESCE(l.qty, 0)
		FROM products p
		LEFT JOIN LATERAL (
			SELECT ` + sumExpr + ` AS qty
			FROM stock_ledger WHERE product_id = p.id
		) l ON TRUE
		WHERE (p.sku ILIKE $1 OR p.name ILIKE $1 OR p.sku ILIKE $2 OR p.name ILIKE $2)
		  AND ($3 = '' OR p.variety = $3)
		ORDER BY p.name, p.variety`
	rows, err := r.q.Query(context.Background(), query, raw, folded, variety)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var out []repository.ProductStock
	for rows.Next() {
		var row repository.ProductStock
		p := &row.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Variety, &p.Price, &p.Attributes,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// exists comprueba si el producto existe por id (lo usan tests de integración).
func (r *CatalogRepo) exists(id string) (bool, error) {
	var found string
	err := r.q.QueryRow(context.Background(), `SELECT id FROM products WHERE id = $1`, id).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
