package handler

import (
	"errors"
	"net/http"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/apierror"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogHandler exposes read-only product and location lookups. Catalog
// writes are owned by the surrounding back-office, so there is no service
// layer in between.
type CatalogHandler struct {
	products  repository.ProductRepository
	locations repository.LocationRepository
}

func NewCatalogHandler(products repository.ProductRepository, locations repository.LocationRepository) *CatalogHandler {
	return &CatalogHandler{products: products, locations: locations}
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	products, total, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, productToResponse(&products[i]))
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

// GetProduct looks a product up by id, falling back to SKU when the path
// parameter is not a UUID. Back-office clients mostly know SKUs.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	param := c.Param("id")

	var product *model.Product
	var err error
	if id, parseErr := uuid.Parse(param); parseErr == nil {
		product, err = h.products.FindByID(c.Request.Context(), id)
	} else {
		product, err = h.products.FindBySKU(c.Request.Context(), param)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("product not found"))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, productToResponse(product))
}

func (h *CatalogHandler) ListLocations(c *gin.Context) {
	locations, err := h.locations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	data := make([]dto.LocationResponse, 0, len(locations))
	for _, l := range locations {
		data = append(data, dto.LocationResponse{
			ID:     l.ID.String(),
			Code:   l.Code,
			Name:   l.Name,
			Active: l.Active,
		})
	}
	c.JSON(http.StatusOK, data)
}

func productToResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:        p.ID.String(),
		SKU:       p.SKU,
		Name:      p.Name,
		CostPrice: p.CostPrice,
		SalePrice: p.SalePrice,
		MinStock:  p.MinStock,
		MaxStock:  p.MaxStock,
		Active:    p.Active,
	}
}
