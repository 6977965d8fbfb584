package dto

type VendorRequest struct {
	Name          string `json:"name"          validate:"required,min=1,max=200"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"         validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	GSTNumber     string `json:"gstNumber"`
	PaymentTerms  string `json:"paymentTerms"`
	Remarks       string `json:"remarks"`
	Active        *bool  `json:"isActive"`
}

type VendorResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	GSTNumber     string `json:"gstNumber"`
	PaymentTerms  string `json:"paymentTerms"`
	Remarks       string `json:"remarks"`
	Active        bool   `json:"isActive"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}
