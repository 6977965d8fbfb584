package dto

type StudentFilter struct {
	Course string `form:"course"`
	Year   int    `form:"year"   validate:"omitempty,min=1"`
	Search string `form:"search"`
	Page   int    `form:"page,default=1"    validate:"min=1"`
	Limit  int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type CreateStudentRequest struct {
	StudentID string `json:"studentId" validate:"required,min=1,max=50"`
	Name      string `json:"name"      validate:"required,min=1,max=200"`
	Course    string `json:"course"    validate:"required"`
	Year      int    `json:"year"      validate:"required,min=1,max=10"`
	Semester  *int   `json:"semester"  validate:"omitempty,min=1"`
	Branch    string `json:"branch"`
}

type StudentResponse struct {
	ID        string          `json:"id"`
	StudentID string          `json:"studentId"`
	Name      string          `json:"name"`
	Course    string          `json:"course"`
	Year      int             `json:"year"`
	Semester  *int            `json:"semester"`
	Branch    string          `json:"branch"`
	Paid      bool            `json:"paid"`
	Items     map[string]bool `json:"items"`
	CreatedAt string          `json:"createdAt"`
}

type StudentListResponse struct {
	Data  []StudentResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// SQLStudentRow is a normalised row of the external student table.
type SQLStudentRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StudentID   string `json:"studentId"`
	Pin         string `json:"pin,omitempty"`
	AlternateID string `json:"alternateId,omitempty"`
	Course      string `json:"course"`
	Year        string `json:"year"`
	Semester    string `json:"semester,omitempty"`
	Branch      string `json:"branch"`
}

type SQLStudentListResponse struct {
	Count int             `json:"count"`
	Table string          `json:"table"`
	Rows  []SQLStudentRow `json:"rows"`
}

type StudentSyncError struct {
	StudentID string `json:"studentId"`
	Message   string `json:"message"`
}

type StudentSyncResponse struct {
	Table    string             `json:"table"`
	Total    int                `json:"total"`
	Inserted int                `json:"inserted"`
	Updated  int                `json:"updated"`
	Skipped  int                `json:"skipped"`
	Errors   []StudentSyncError `json:"errors"`
	Message  string             `json:"message"`
}
