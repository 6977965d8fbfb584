package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stationery/internal/dto"
	"stationery/internal/infra"
	"stationery/internal/model"
	"stationery/internal/repository"
	"stationery/internal/worker"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

const (
	studentSyncLockKey = "lock:student-sync"
	studentSyncLockTTL = 10 * time.Minute
)

// StudentSource yields raw rows of the institution's student table.
type StudentSource interface {
	Table() string
	FetchRows(ctx context.Context) ([]map[string]interface{}, error)
}

// StudentSyncService imports students from the external source into the
// registry. Only one import runs at a time across all instances.
type StudentSyncService interface {
	Preview(ctx context.Context) (*dto.SQLStudentListResponse, error)
	SyncStudents(ctx context.Context) (*dto.StudentSyncResponse, error)
	EnqueueSync(ctx context.Context, requestedBy string) error
}

type studentSyncService struct {
	source     StudentSource
	repo       repository.StudentRepository
	locker     *redislock.Client
	dispatcher *worker.Dispatcher
}

// NewStudentSyncService wires the importer. source may be nil when no
// external database is configured; locker and dispatcher may be nil in tests.
func NewStudentSyncService(
	source StudentSource,
	repo repository.StudentRepository,
	locker *redislock.Client,
	dispatcher *worker.Dispatcher,
) StudentSyncService {
	return &studentSyncService{source: source, repo: repo, locker: locker, dispatcher: dispatcher}
}

func (s *studentSyncService) fetch(ctx context.Context) ([]dto.SQLStudentRow, error) {
	if s.source == nil {
		return nil, newError(ErrUnavailable, "Student database is not configured")
	}
	rows, err := s.source.FetchRows(ctx)
	switch {
	case errors.Is(err, infra.ErrStudentTableMissing):
		return nil, notFound("Table %q not found in the configured database.", s.source.Table())
	case errors.Is(err, infra.ErrCircuitOpen):
		return nil, newError(ErrUnavailable, "Student database is temporarily unavailable")
	case err != nil:
		return nil, fmt.Errorf("fetch students from %s: %w", s.source.Table(), err)
	}
	out := make([]dto.SQLStudentRow, len(rows))
	for i, r := range rows {
		out[i] = normalizeStudentRow(r)
	}
	return out, nil
}

func (s *studentSyncService) Preview(ctx context.Context) (*dto.SQLStudentListResponse, error) {
	rows, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SQLStudentListResponse{Count: len(rows), Table: s.source.Table(), Rows: rows}, nil
}

func (s *studentSyncService) EnqueueSync(ctx context.Context, requestedBy string) error {
	if s.dispatcher == nil {
		return newError(ErrUnavailable, "Background jobs are not available")
	}
	return s.dispatcher.EnqueueStudentSync(ctx, worker.StudentSyncJobPayload{RequestedBy: requestedBy})
}

// SyncStudents inserts unknown students and updates changed ones. Rows
// without a name or any usable id are skipped; per-row failures are
// collected in the summary instead of aborting the run.
func (s *studentSyncService) SyncStudents(ctx context.Context) (*dto.StudentSyncResponse, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, studentSyncLockKey, studentSyncLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, newError(ErrConflict, "A student sync is already running")
		}
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn().Err(err).Msg("student sync: failed to release lock")
			}
		}()
	}

	rows, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	table := s.source.Table()
	summary := &dto.StudentSyncResponse{Table: table, Errors: []dto.StudentSyncError{}}
	if len(rows) == 0 {
		summary.Message = "No records found in student table."
		return summary, nil
	}
	summary.Total = len(rows)

	numbers := make([]string, 0, len(rows)*2)
	for _, r := range rows {
		if id := preferredStudentID(r); id != "" {
			numbers = append(numbers, id)
		}
		if meaningful(r.AlternateID) {
			numbers = append(numbers, r.AlternateID)
		}
	}
	existing, err := s.repo.FindByNumbers(ctx, numbers)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[string]*model.Student, len(existing))
	for i := range existing {
		byNumber[existing[i].StudentNumber] = &existing[i]
	}

	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		preferred := preferredStudentID(r)
		fallback := ""
		if meaningful(r.AlternateID) {
			fallback = strings.TrimSpace(r.AlternateID)
		}
		number := preferred
		if number == "" {
			number = fallback
		}
		if name == "" || number == "" {
			summary.Skipped++
			continue
		}

		course := "General"
		if meaningful(r.Course) {
			course = strings.TrimSpace(r.Course)
		}
		branch := ""
		if meaningful(r.Branch) {
			branch = strings.TrimSpace(r.Branch)
		}
		year := 1
		if n, err := strconv.Atoi(leadingDigits(r.Year)); err == nil && n > 0 {
			year = n
		}
		var semester *int
		if n, err := strconv.Atoi(leadingDigits(r.Semester)); err == nil && n > 0 {
			semester = &n
		}

		st, ok := byNumber[number]
		if !ok && fallback != "" {
			st, ok = byNumber[fallback]
		}

		if !ok {
			created := &model.Student{
				StudentNumber: number,
				Name:          name,
				Course:        course,
				Year:          year,
				Semester:      semester,
				Branch:        branch,
			}
			if err := s.repo.Create(ctx, created); err != nil {
				summary.Errors = append(summary.Errors, dto.StudentSyncError{StudentID: number, Message: err.Error()})
				continue
			}
			byNumber[number] = created
			summary.Inserted++
			continue
		}

		changed := false
		if st.Name != name {
			st.Name, changed = name, true
		}
		if st.Course != course {
			st.Course, changed = course, true
		}
		if st.Year != year {
			st.Year, changed = year, true
		}
		if st.Branch != branch {
			st.Branch, changed = branch, true
		}
		if semester != nil && (st.Semester == nil || *st.Semester != *semester) {
			st.Semester, changed = semester, true
		}
		if preferred != "" && st.StudentNumber != preferred {
			st.StudentNumber, changed = preferred, true
		}
		if !changed {
			summary.Skipped++
			continue
		}
		if err := s.repo.Update(ctx, st); err != nil {
			summary.Errors = append(summary.Errors, dto.StudentSyncError{StudentID: number, Message: err.Error()})
			continue
		}
		byNumber[st.StudentNumber] = st
		summary.Updated++
	}

	summary.Message = fmt.Sprintf("Sync complete for table %q.", table)
	log.Info().
		Str("table", table).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("errors", len(summary.Errors)).
		Msg("student sync finished")
	return summary, nil
}

// ── Row normalisation ────────────────────────────────────────────────────────
// Institution tables name their columns inconsistently; each field is taken
// from the first candidate column that holds a value.

var (
	idColumns        = []string{"id", "ID", "student_id", "studentId", "roll_no", "rollNo"}
	altIDColumns     = []string{"uuid", "userId", "user_id"}
	firstNameColumns = []string{"first_name", "firstName", "fname", "first"}
	lastNameColumns  = []string{"last_name", "lastName", "lname", "last"}
	nameColumns      = []string{"name", "student_name", "studentName", "full_name", "fullName"}
	pinColumns       = []string{"pin_number", "pinNumber", "pin_no", "pinNo", "pin", "PIN", "pin_num", "pinNum", "pin_nbr", "pinNbr"}
	secondaryColumns = []string{"student_id", "studentId", "roll_no", "rollNo", "registration_no", "registrationNo"}
	courseColumns    = []string{"course", "course_name", "courseName", "program", "programme"}
	yearColumns      = []string{"year", "year_of_study", "yearOfStudy", "current_year", "stud_year", "semester_year"}
	semesterColumns  = []string{"semester", "current_semester", "semester_no", "sem", "sem_no"}
	branchColumns    = []string{"branch", "department", "dept", "department_name"}
)

// columnValue returns the first non-null candidate column, stringified.
func columnValue(row map[string]interface{}, columns []string) (string, bool) {
	for _, c := range columns {
		if v, ok := row[c]; ok && v != nil {
			return stringify(v), true
		}
	}
	return "", false
}

// firstFilled returns the first candidate column holding a non-empty value.
func firstFilled(row map[string]interface{}, columns []string) string {
	for _, c := range columns {
		if v, ok := row[c]; ok && v != nil {
			if s := strings.TrimSpace(stringify(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func normalizeStudentRow(row map[string]interface{}) dto.SQLStudentRow {
	id, hasID := columnValue(row, idColumns)
	if !hasID {
		id, hasID = columnValue(row, altIDColumns)
	}

	combined := strings.TrimSpace(strings.Join(nonEmpty(
		firstFilled(row, firstNameColumns),
		firstFilled(row, lastNameColumns),
	), " "))
	name := firstFilled(row, nameColumns)
	if name == "" {
		name = combined
	}
	if name == "" {
		raw, _ := json.Marshal(row)
		name = string(raw)
	}

	pin := firstFilled(row, pinColumns)
	secondary := firstFilled(row, secondaryColumns)
	if secondary == "" {
		secondary = strings.TrimSpace(id)
	}
	preferred := pin
	if preferred == "" {
		preferred = secondary
	}

	course, ok := columnValue(row, courseColumns)
	if !ok {
		course = "N/A"
	}
	year, ok := columnValue(row, yearColumns)
	if !ok {
		year = "N/A"
	}
	semester, _ := columnValue(row, semesterColumns)
	branch, ok := columnValue(row, branchColumns)
	if !ok {
		branch = "N/A"
	}

	out := dto.SQLStudentRow{
		ID:          id,
		Name:        name,
		StudentID:   preferred,
		Pin:         pin,
		AlternateID: secondary,
		Course:      course,
		Year:        year,
		Semester:    semester,
		Branch:      branch,
	}
	if !hasID {
		out.ID = preferred
		if out.ID == "" {
			out.ID = name + "-" + course
		}
	}
	if out.StudentID == "" {
		out.StudentID = "N/A"
	}
	return out
}

// preferredStudentID is the pin when present, otherwise the student id.
func preferredStudentID(r dto.SQLStudentRow) string {
	if meaningful(r.Pin) {
		return strings.TrimSpace(r.Pin)
	}
	if meaningful(r.StudentID) {
		return strings.TrimSpace(r.StudentID)
	}
	return ""
}

// meaningful reports whether v holds a real value: non-blank and not "N/A".
func meaningful(v string) bool {
	s := strings.TrimSpace(v)
	return s != "" && !strings.EqualFold(s, "n/a")
}

// leadingDigits keeps the integer prefix of v ("2nd" → "2"), mirroring a
// lenient integer parse.
func leadingDigits(v string) string {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	return v[:end]
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
