package handler

import (
	"net/http"

	"stationery/internal/dto"
	"stationery/internal/middleware"
	"stationery/internal/service"

	"github.com/gin-gonic/gin"
)

type StockEntriesHandler struct{ svc service.StockEntryService }

func NewStockEntriesHandler(svc service.StockEntryService) *StockEntriesHandler {
	return &StockEntriesHandler{svc: svc}
}

// Create godoc
// @Summary      Record a stock entry
// @Description  Adds the purchased quantity to product stock.
// @Tags         stock-entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateStockEntryRequest true "Purchase"
// @Success      201  {object} dto.StockEntryResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/stock-entries [post]
func (h *StockEntriesHandler) Create(c *gin.Context) {
	var req dto.CreateStockEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List stock entries
// @Tags         stock-entries
// @Produce      json
// @Security     BearerAuth
// @Param        product query string false "Product uuid"
// @Param        vendor query string false "Vendor uuid"
// @Param        startDate query string false "From (YYYY-MM-DD)"
// @Param        endDate query string false "To (YYYY-MM-DD)"
// @Success      200  {array}  dto.StockEntryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /api/stock-entries [get]
func (h *StockEntriesHandler) List(c *gin.Context) {
	var filter dto.StockEntryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary      Get a stock entry
// @Tags         stock-entries
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Stock entry uuid"
// @Success      200  {object} dto.StockEntryResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/stock-entries/{id} [get]
func (h *StockEntriesHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary      Update a stock entry
// @Description  A changed quantity applies the difference to product stock.
// @Tags         stock-entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Stock entry uuid"
// @Param        body body dto.UpdateStockEntryRequest true "Changes"
// @Success      200  {object} dto.StockEntryResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/stock-entries/{id} [put]
func (h *StockEntriesHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStockEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Delete a stock entry
// @Description  Removes the entry quantity from stock, floored at zero.
// @Tags         stock-entries
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Stock entry uuid"
// @Success      200  {object} map[string]string
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/stock-entries/{id} [delete]
func (h *StockEntriesHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock entry removed"})
}
