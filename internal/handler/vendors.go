package handler

import (
	"net/http"

	"stationery/internal/dto"
	"stationery/internal/service"

	"github.com/gin-gonic/gin"
)

type VendorsHandler struct{ svc service.VendorService }

func NewVendorsHandler(svc service.VendorService) *VendorsHandler {
	return &VendorsHandler{svc: svc}
}

// Create godoc
// @Summary      Create a vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.VendorRequest true "Vendor"
// @Success      201  {object} dto.VendorResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /api/vendors [post]
func (h *VendorsHandler) Create(c *gin.Context) {
	var req dto.VendorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List vendors
// @Description  Returns active vendors; ?all=true includes deactivated ones.
// @Tags         vendors
// @Produce      json
// @Security     BearerAuth
// @Param        all query bool false "Include deactivated vendors"
// @Success      200  {array}  dto.VendorResponse
// @Router       /api/vendors [get]
func (h *VendorsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary      Get a vendor
// @Tags         vendors
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Vendor uuid"
// @Success      200  {object} dto.VendorResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/vendors/{id} [get]
func (h *VendorsHandler) GetByID(c *gin.Context) {
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
// @Summary      Update a vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Vendor uuid"
// @Param        body body dto.VendorRequest true "Vendor"
// @Success      200  {object} dto.VendorResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /api/vendors/{id} [put]
func (h *VendorsHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.VendorRequest
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
// @Summary      Deactivate a vendor
// @Tags         vendors
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Vendor uuid"
// @Success      200  {object} map[string]string
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/vendors/{id} [delete]
func (h *VendorsHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vendor deactivated"})
}
