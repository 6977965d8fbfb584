package handler

import (
	"net/http"

	"stationery/internal/dto"
	"stationery/internal/service"

	"github.com/gin-gonic/gin"
)

type TransactionsHandler struct{ svc service.TransactionService }

func NewTransactionsHandler(svc service.TransactionService) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

// Create godoc
// @Summary      Record a sale
// @Description  Validates and decrements stock (sets consume their components), marks received items and flags the student as paid, in one DB transaction.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateTransactionRequest true "Sale"
// @Success      201  {object} dto.TransactionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/transactions [post]
func (h *TransactionsHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
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
// @Summary      List transactions
// @Description  Newest first; filter by course, student, payment method and paid flag.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        course query string false "Student course"
// @Param        studentId query string false "Student uuid"
// @Param        paymentMethod query string false "cash or online"
// @Param        isPaid query string false "true or false"
// @Param        page query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200  {object} dto.TransactionListResponse
// @Failure      400  {object} apierror.APIError
// @Router       /api/transactions [get]
func (h *TransactionsHandler) List(c *gin.Context) {
	var filter dto.TransactionFilter
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
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transaction uuid"
// @Success      200  {object} dto.TransactionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/transactions/{id} [get]
func (h *TransactionsHandler) GetByID(c *gin.Context) {
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

// ListByStudent godoc
// @Summary      List a student's transactions
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        studentId path string true "Student uuid"
// @Success      200  {array}  dto.TransactionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/transactions/student/{studentId} [get]
func (h *TransactionsHandler) ListByStudent(c *gin.Context) {
	id, ok := parseID(c, "studentId")
	if !ok {
		return
	}
	resp, err := h.svc.ListByStudent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary      Update a transaction
// @Description  Partial update. Sending items reverses the old lines and re-reserves stock for the new ones.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transaction uuid"
// @Param        body body dto.UpdateTransactionRequest true "Changes"
// @Success      200  {object} dto.TransactionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/transactions/{id} [put]
func (h *TransactionsHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTransactionRequest
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
// @Summary      Delete a transaction
// @Description  Returns the sold stock, then removes the transaction.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transaction uuid"
// @Success      200  {object} map[string]string
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /api/transactions/{id} [delete]
func (h *TransactionsHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
