package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación de LedgerRepository sobre PostgreSQL.
// La tabla es append-only: este repo solo hace INSERT y SELECT.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append registra un movimiento. Valida tipo y signo antes de tocar la base:
// IN/OUT llevan cantidad positiva, ADJUST lleva delta con signo y nunca cero.
func (r *LedgerRepo) Append(m *entity.Movement) error {
	switch m.Kind {
	case entity.MovementIN, entity.MovementOUT:
		if m.Quantity <= 0 {
			return fmt.Errorf("%w: cantidad debe ser positiva para %s", domain.ErrInvalidInput, m.Kind)
		}
	case entity.MovementADJUST:
		if m.Quantity == 0 {
			return fmt.Errorf("%w: ajuste con delta cero", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: movimiento desconocido %q", domain.ErrInvalidInput, m.Kind)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO stock_ledger (id, product_id, movement, quantity, unit_price, source, ref_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.ProductID, m.Kind, m.Quantity, m.UnitPrice,
		nullable(m.Source), nullable(m.RefID), nullable(m.Notes), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

// SumByProduct devuelve la cantidad actual: Σ(IN) − Σ(OUT) + Σ(ADJUST).
// Lectura sin lock; para decidir una venta usar SumForUpdate dentro de una tx.
func (r *LedgerRepo) SumByProduct(productID string) (int64, error) {
	var qty int64
	query := `SELECT ` + sumExpr + ` FROM stock_ledger WHERE product_id = $1`
	if err := r.q.QueryRow(context.Background(), query, productID).Scan(&qty); err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return qty, nil
}

// SumByProducts agrega varias cantidades en una sola consulta. Los ids sin
// movimientos aparecen en el mapa con 0.
func (r *LedgerRepo) SumByProducts(productIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(productIDs))
	for _, id := range productIDs {
		out[id] = 0
	}
	if len(productIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT product_id, ` + sumExpr + `
		FROM stock_ledger WHERE product_id = ANY($1)
		GROUP BY product_id`
	rows, err := r.q.Query(context.Background(), query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("sum ledger batch: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan sum batch: %w", err)
		}
		out[id] = qty
	}
	return out, rows.Err()
}

// SumForUpdate bloquea la fila del producto y recién entonces suma su ledger.
// Postgres no permite FOR UPDATE sobre agregados, así que el lock vive en
// products: todo escritor que quiera decidir sobre el stock del producto pasa
// por esta fila y queda serializado. Válido SOLO dentro de una transacción.
func (r *LedgerRepo) SumForUpdate(productID string) (int64, error) {
	ctx := context.Background()
	var locked string
	err := r.q.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
		}
		return 0, fmt.Errorf("lock product: %w", err)
	}
	var qty int64
	query := `SELECT ` + sumExpr + ` FROM stock_ledger WHERE product_id = $1`
	if err := r.q.QueryRow(ctx, query, productID).Scan(&qty); err != nil {
		return 0, fmt.Errorf("sum ledger locked: %w", err)
	}
	return qty, nil
}

// SumManyForUpdate bloquea y suma varios productos adquiriendo los locks en
// orden ascendente de id. Todo escritor multi-producto usa el mismo orden, lo
// que descarta deadlocks entre órdenes con productos en común.
func (r *LedgerRepo) SumManyForUpdate(productIDs []string) (map[string]int64, error) {
	ids := make([]string, len(productIDs))
	copy(ids, productIDs)
	sort.Strings(ids)

	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		qty, err := r.SumForUpdate(id)
		if err != nil {
			return nil, err
		}
		out[id] = qty
	}
	return out, nil
}

// ListByProduct devuelve movimientos del producto, más recientes primero,
// con filtro opcional de rango de fechas. Alimenta el kardex.
func (r *LedgerRepo) ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	query := `
		SELECT id, product_id, movement, quantity, unit_price, source, ref_id, notes, created_at
		FROM stock_ledger
		WHERE product_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`
	rows, err := r.q.Query(context.Background(), query, productID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		var source, refID, notes *string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.UnitPrice,
			&source, &refID, &notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Source = deref(source)
		m.RefID = deref(refID)
		m.Notes = deref(notes)
		out = append(out, &m)
	}
	return out, rows.Err()
}
