package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
)

// CatalogHandler maneja las peticiones HTTP de catálogo (upsert y consultas).
type CatalogHandler struct {
	uc *catalog.Resolver
}

// NewCatalogHandler construye el handler de catálogo.
func NewCatalogHandler(uc *catalog.Resolver) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// Upsert godoc
// @Summary      Crear o actualizar un producto por (sku, variety)
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProductUpsertRequest  true  "sku, name, variety, price, attributes"
// @Success      200   {object}  dto.ProductUpsertResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/products/upsert [post]
func (h *CatalogHandler) Upsert(c *fiber.Ctx) error {
	var in dto.ProductUpsertRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Upsert(in)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// UpsertBatch godoc
// @Summary      Upsert de productos por lote (JSON o CSV)
// @Description  Acepta JSON {"items":[...]} o multipart con un archivo CSV en
//
//	el campo "file" (columnas: sku,name,variety,price,attributes,is_active).
//	Todo-o-nada: ningún caller observa un catálogo parcial.
//
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      200  {array}   dto.ProductUpsertResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/upsert/batch [post]
func (h *CatalogHandler) UpsertBatch(c *fiber.Ctx) error {
	var items []dto.ProductUpsertRequest

	if fileHeader, err := c.FormFile("file"); err == nil {
		parsed, parseErr := parseProductsCSV(fileHeader)
		if parseErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_CSV", Message: parseErr.Error()})
		}
		items = parsed
	} else {
		var in dto.ProductUpsertBatchRequest
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
		items = in.Items
	}
	if len(items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "el lote no tiene items"})
	}

	out, err := h.uc.UpsertBatch(items)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// GetPrice godoc
// @Summary      Precio vigente de un producto
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        sku      path   string  true   "SKU"
// @Param        variety  query  string  false  "Variante (requerida si el SKU tiene varias)"
// @Success      200  {object}  dto.PriceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{sku}/price [get]
func (h *CatalogHandler) GetPrice(c *fiber.Ctx) error {
	out, err := h.uc.GetPrice(c.Params("sku"), c.Query("variety"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// GetStock godoc
// @Summary      Cantidad en stock derivada del ledger
// @Description  Un SKU desconocido responde quantity=0, available=false (no es error).
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        sku      path   string  true   "SKU"
// @Param        variety  query  string  false  "Variante"
// @Success      200  {object}  dto.StockResponse
// @Router       /api/products/{sku}/stock [get]
func (h *CatalogHandler) GetStock(c *fiber.Ctx) error {
	out, err := h.uc.GetStock(c.Params("sku"), c.Query("variety"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// GetCard godoc
// @Summary      Ficha completa del producto con stock vivo
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        sku      path   string  true   "SKU"
// @Param        variety  query  string  false  "Variante"
// @Success      200  {object}  dto.ProductCardResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{sku}/card [get]
func (h *CatalogHandler) GetCard(c *fiber.Ctx) error {
	out, err := h.uc.ProductCard(c.Params("sku"), c.Query("variety"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// ListVarieties godoc
// @Summary      Variantes registradas para un nombre de producto
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        name  query  string  true  "Nombre (coincidencia parcial)"
// @Success      200  {object}  dto.VarietiesResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/varieties [get]
func (h *CatalogHandler) ListVarieties(c *fiber.Ctx) error {
	out, err := h.uc.ListVarieties(c.Query("name"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// Search godoc
// @Summary      Búsqueda de catálogo por SKU o nombre
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        q        query  string  true   "Texto a buscar (acentos-insensible)"
// @Param        variety  query  string  false  "Filtrar por variante"
// @Success      200  {object}  dto.SearchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/search [get]
func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	out, err := h.uc.Search(c.Query("q"), c.Query("variety"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}

// parseProductsCSV convierte un CSV subido en items de upsert.
// Cabecera esperada: sku,name,variety,price,attributes,is_active
// (variety, attributes e is_active son opcionales).
func parseProductsCSV(fileHeader *multipart.FileHeader) ([]dto.ProductUpsertRequest, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("abrir archivo: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("leer cabecera: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"sku", "name", "price"} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("falta la columna %q", required)
		}
	}
	field := func(record []string, name string) string {
		idx, ok := colIdx[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var items []dto.ProductUpsertRequest
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		price, err := decimal.NewFromString(field(record, "price"))
		if err != nil {
			return nil, fmt.Errorf("línea %d: precio inválido %q", line, field(record, "price"))
		}
		item := dto.ProductUpsertRequest{
			SKU:     field(record, "sku"),
			Name:    field(record, "name"),
			Variety: field(record, "variety"),
			Price:   price,
		}
		if attrs := field(record, "attributes"); attrs != "" {
			if !json.Valid([]byte(attrs)) {
				return nil, fmt.Errorf("línea %d: attributes no es JSON válido", line)
			}
			item.Attributes = json.RawMessage(attrs)
		}
		if active := field(record, "is_active"); active != "" {
			v := strings.EqualFold(active, "true") || active == "1"
			item.IsActive = &v
		}
		items = append(items, item)
	}
	return items, nil
}
