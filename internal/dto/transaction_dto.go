package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// TransactionFilter is bound from the query string of GET /api/transactions.
type TransactionFilter struct {
	Course        string `form:"course"`
	StudentID     string `form:"studentId"     validate:"omitempty,uuid"`
	PaymentMethod string `form:"paymentMethod" validate:"omitempty,oneof=cash online"`
	IsPaid        string `form:"isPaid"        validate:"omitempty,oneof=true false"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type TransactionListResponse struct {
	Data  []TransactionResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// TransactionItemRequest is one requested sale line. Price is a pointer so a
// missing price can be told apart from a zero price.
type TransactionItemRequest struct {
	ProductID string           `json:"productId" validate:"required,uuid"`
	Quantity  int              `json:"quantity"  validate:"required,min=1"`
	Price     *decimal.Decimal `json:"price"`
	Name      string           `json:"name"`
}

type CreateTransactionRequest struct {
	StudentID     string                   `json:"studentId"     validate:"required,uuid"`
	Items         []TransactionItemRequest `json:"items"         validate:"required,min=1,dive"`
	PaymentMethod string                   `json:"paymentMethod" validate:"omitempty,oneof=cash online"`
	IsPaid        bool                     `json:"isPaid"`
	Remarks       string                   `json:"remarks"`
}

// UpdateTransactionRequest is a partial update: nil fields are left untouched,
// an empty Items slice keeps the current lines.
type UpdateTransactionRequest struct {
	Items         []TransactionItemRequest `json:"items"         validate:"omitempty,dive"`
	PaymentMethod *string                  `json:"paymentMethod" validate:"omitempty,oneof=cash online"`
	IsPaid        *bool                    `json:"isPaid"`
	Remarks       *string                  `json:"remarks"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type StudentSnapshotResponse struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	Course    string `json:"course"`
	Year      int    `json:"year"`
	Branch    string `json:"branch"`
}

type SetComponentResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type TransactionItemResponse struct {
	ProductID     string                 `json:"productId"`
	Name          string                 `json:"name"`
	Quantity      int                    `json:"quantity"`
	Price         decimal.Decimal        `json:"price"`
	Total         decimal.Decimal        `json:"total"`
	IsSet         bool                   `json:"isSet"`
	SetComponents []SetComponentResponse `json:"setComponents,omitempty"`
}

type TransactionResponse struct {
	ID              string                    `json:"id"`
	TransactionID   string                    `json:"transactionId"`
	Student         StudentSnapshotResponse   `json:"student"`
	Items           []TransactionItemResponse `json:"items"`
	TotalAmount     decimal.Decimal           `json:"totalAmount"`
	PaymentMethod   string                    `json:"paymentMethod"`
	IsPaid          bool                      `json:"isPaid"`
	PaidAt          *string                   `json:"paidAt"`
	TransactionDate string                    `json:"transactionDate"`
	Remarks         string                    `json:"remarks"`
	CreatedAt       string                    `json:"createdAt"`
	UpdatedAt       string                    `json:"updatedAt"`
}
