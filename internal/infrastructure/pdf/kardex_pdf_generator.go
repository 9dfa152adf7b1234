// Package pdf implementa la representación PDF del kardex de un producto.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre del producto + SKU  │  Fecha de emisión     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FICHA: Variante / Precio / Stock actual                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Cantidad | Precio | Origen | Ref     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: leyenda (stock derivado del ledger)                │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stock-ledger-api/internal/application/report"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

var _ report.KardexPDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 40, Blue: 40}
	colorGreen   = &props.Color{Red: 30, Green: 120, Blue: 60}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa report.KardexPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateKardexPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateKardexPDF(
	_ context.Context,
	product *entity.Product,
	quantity int64,
	movements []*entity.Movement,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Kardex "+product.SKU, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(product))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(fichaRow(product, quantity))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableMovementRows(movements) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(len(movements)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: nombre + SKU (izq) y fecha de emisión (der).
func headerRow(product *entity.Product) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(product.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("SKU: "+product.SKU, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("KARDEX DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(nowFn().Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

// fichaRow: variante, precio de catálogo y stock actual derivado.
func fichaRow(product *entity.Product, quantity int64) core.Row {
	variety := product.Variety
	if variety == "" {
		variety = "—"
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New("FICHA DEL PRODUCTO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Variante: %s   |   Precio: $%s   |   Stock actual: %d",
				variety, product.Price.StringFixed(2), quantity,
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de movimientos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 3, align.Left),
		h("Tipo", 1, align.Center),
		h("Cantidad", 2, align.Right),
		h("Precio", 2, align.Right),
		h("Origen", 2, align.Left),
		h("Referencia", 2, align.Left),
	)
}

// tableMovementRows: una fila por movimiento del ledger.
func tableMovementRows(movements []*entity.Movement) []core.Row {
	result := make([]core.Row, 0, len(movements))
	for _, mv := range movements {
		qty := mv.Quantity
		qtyColor := colorGreen
		if mv.Kind == entity.MovementOUT || (mv.Kind == entity.MovementADJUST && qty < 0) {
			qtyColor = colorRed
		}
		price := "—"
		if mv.UnitPrice != nil {
			price = "$" + mv.UnitPrice.StringFixed(2)
		}
		result = append(result, row.New(7).Add(
			col.New(3).Add(text.New(
				mv.CreatedAt.Format("02/01/2006 15:04"),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				mv.Kind,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				signedQty(mv),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1, Color: qtyColor},
			)),
			col.New(2).Add(text.New(
				price,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				nonEmpty(mv.Source, "—"),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				nonEmpty(mv.RefID, "—"),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
		))
	}
	return result
}

// footerRow: leyenda de cierre.
func footerRow(count int) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(fmt.Sprintf(
			"Movimientos listados: %d. El stock actual se deriva del ledger de movimientos "+
				"(entradas − salidas + ajustes); este documento es una foto, no una fuente de verdad.",
			count,
		), props.Text{Size: 6.5, Color: colorGray, Top: 2}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

// nowFn inyectable para tests de layout con fecha fija.
var nowFn = time.Now

// signedQty muestra la cantidad con el signo del efecto sobre el stock.
func signedQty(mv *entity.Movement) string {
	switch mv.Kind {
	case entity.MovementOUT:
		return fmt.Sprintf("-%d", mv.Quantity)
	case entity.MovementADJUST:
		return fmt.Sprintf("%+d", mv.Quantity)
	default:
		return fmt.Sprintf("+%d", mv.Quantity)
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
