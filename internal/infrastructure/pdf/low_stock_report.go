// Package pdf genera el reporte de productos con stock bajo de una tienda.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre tienda + slug │  REPORTE + Fecha            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Producto | Stock | Alerta | Faltante           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: productos en alerta / unidades faltantes          │
//	│  FOOTER: QR al WhatsApp de la tienda                        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
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

	appinventory "github.com/jhoicas/vitrina-stock/internal/application/inventory"
	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/domain/entity"
)

var _ appinventory.LowStockReportGenerator = (*LowStockReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorAlert   = &props.Color{Red: 178, Green: 34, Blue: 34}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// LowStockReportGenerator implementa inventory.LowStockReportGenerator usando Maroto v2.
type LowStockReportGenerator struct{}

// NewLowStockReportGenerator construye el generador.
func NewLowStockReportGenerator() *LowStockReportGenerator { return &LowStockReportGenerator{} }

// GenerateLowStockPDF genera el PDF y devuelve sus bytes.
func (g *LowStockReportGenerator) GenerateLowStockPDF(
	_ context.Context,
	store *entity.Store,
	items []dto.LowStockItemDTO,
	generatedAt time.Time,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de stock bajo", true).
		WithAuthor(store.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(store, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	if len(items) == 0 {
		m.AddRows(row.New(12).Add(col.New(12).Add(
			text.New("Ningún producto está en o bajo su alerta de stock.", props.Text{
				Size: 10, Align: align.Center, Top: 4, Color: colorGray,
			}),
		)))
	} else {
		m.AddRows(tableHeaderRow())
		m.AddRows(tableRows(items)...)
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(summaryRow(items))
	}

	if phone := digitsOnly(store.WhatsAppPhone); phone != "" {
		m.AddRows(line.NewRow(3))
		m.AddRows(whatsAppRow(phone))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: nombre de la tienda (izq) y título + fecha (der).
func headerRow(store *entity.Store, generatedAt time.Time) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(store.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Tienda: "+store.Slug, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("REPORTE DE STOCK BAJO", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorAlert, Top: 1,
			}),
			text.New("Generado: "+generatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 2, align.Left),
		h("Producto", 5, align.Left),
		h("Stock", 2, align.Right),
		h("Alerta", 1, align.Right),
		h("Faltante", 2, align.Right),
	)
}

// tableRows: una fila por producto; el faltante va en rojo.
func tableRows(items []dto.LowStockItemDTO) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(nonEmpty(it.SKU, "-"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(5).Add(text.New(it.ProductName, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatThousands(it.Quantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(strconv.Itoa(it.MinStockAlert), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatThousands(it.Deficit), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 1, Color: colorAlert,
			})),
		))
	}
	return result
}

func summaryRow(items []dto.LowStockItemDTO) core.Row {
	missing := 0
	for _, it := range items {
		if it.Deficit > 0 {
			missing += it.Deficit
		}
	}
	return row.New(12).Add(
		col.New(6),
		col.New(6).Add(
			text.New(fmt.Sprintf("Productos en alerta: %d", len(items)), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 1, Right: 1,
			}),
			text.New("Unidades faltantes: "+formatThousands(missing), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 6, Right: 1, Color: colorAlert,
			}),
		),
	)
}

// whatsAppRow: QR al chat de la tienda para pedir reposición.
func whatsAppRow(phone string) core.Row {
	return row.New(35).Add(
		col.New(3).Add(code.NewQr("https://wa.me/"+phone, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Escanea el código para abrir el chat de la tienda.", props.Text{
				Size: 8, Top: 6, Left: 3, Color: colorGray,
			}),
			text.New("+"+phone, props.Text{Style: fontstyle.Bold, Size: 10, Top: 14, Left: 3}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatThousands inserta puntos de miles. Ej: 25000 → "25.000", -1200 → "-1.200".
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	l := len(s)
	if l <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, l+l/3)
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
