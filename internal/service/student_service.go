package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"stationery/internal/dto"
	"stationery/internal/model"
	"stationery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentService interface {
	Create(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.StudentResponse, error)
	List(ctx context.Context, filter dto.StudentFilter) (*dto.StudentListResponse, error)
}

type studentService struct {
	repo repository.StudentRepository
}

func NewStudentService(repo repository.StudentRepository) StudentService {
	return &studentService{repo: repo}
}

func (s *studentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	number := strings.TrimSpace(req.StudentID)
	name := strings.TrimSpace(req.Name)
	if number == "" || name == "" {
		return nil, invalid("Student id and name are required")
	}

	existing, err := s.repo.FindByNumbers(ctx, []string{number})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, newError(ErrConflict, "Student %s already exists", number)
	}

	st := model.Student{
		StudentNumber: number,
		Name:          name,
		Course:        strings.TrimSpace(req.Course),
		Year:          req.Year,
		Semester:      req.Semester,
		Branch:        strings.TrimSpace(req.Branch),
	}
	if err := s.repo.Create(ctx, &st); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newError(ErrConflict, "Student %s already exists", number)
		}
		return nil, err
	}
	resp := studentToResponse(&st, nil)
	return &resp, nil
}

func (s *studentService) GetByID(ctx context.Context, id uuid.UUID) (*dto.StudentResponse, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Student not found")
	}
	items, err := s.repo.ReceivedItems(ctx, []uuid.UUID{st.ID})
	if err != nil {
		return nil, err
	}
	resp := studentToResponse(st, items)
	return &resp, nil
}

func (s *studentService) List(ctx context.Context, filter dto.StudentFilter) (*dto.StudentListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	items, err := s.repo.ReceivedItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[uuid.UUID][]model.StudentItem, len(students))
	for _, it := range items {
		byStudent[it.StudentID] = append(byStudent[it.StudentID], it)
	}

	data := make([]dto.StudentResponse, len(students))
	for i := range students {
		data[i] = studentToResponse(&students[i], byStudent[students[i].ID])
	}
	return &dto.StudentListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// studentToResponse builds the items-received map. Keys come from the
// product's current name, so a renamed product keeps its mark.
func studentToResponse(st *model.Student, items []model.StudentItem) dto.StudentResponse {
	received := make(map[string]bool, len(items))
	for _, it := range items {
		if it.Product == nil || !it.Received {
			continue
		}
		received[model.ItemKey(it.Product.Name)] = true
	}
	return dto.StudentResponse{
		ID:        st.ID.String(),
		StudentID: st.StudentNumber,
		Name:      st.Name,
		Course:    st.Course,
		Year:      st.Year,
		Semester:  st.Semester,
		Branch:    st.Branch,
		Paid:      st.Paid,
		Items:     received,
		CreatedAt: st.CreatedAt.Format(time.RFC3339),
	}
}
