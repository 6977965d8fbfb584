package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"stationery/internal/dto"
	"stationery/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	table string
	rows  []map[string]interface{}
	err   error
}

func (s *fakeSource) Table() string { return s.table }

func (s *fakeSource) FetchRows(_ context.Context) ([]map[string]interface{}, error) {
	return s.rows, s.err
}

func TestNormalizeStudentRow_ColumnVariants(t *testing.T) {
	row := normalizeStudentRow(map[string]interface{}{
		"ID":         int64(17),
		"first_name": "Priya",
		"last_name":  "Nair",
		"pin_number": []byte("21A91A0517"),
		"roll_no":    "517",
		"programme":  "B.Tech",
		"stud_year":  "3rd",
		"sem":        int64(5),
		"department": "ECE",
	})
	assert.Equal(t, "17", row.ID)
	assert.Equal(t, "Priya Nair", row.Name)
	assert.Equal(t, "21A91A0517", row.StudentID)
	assert.Equal(t, "21A91A0517", row.Pin)
	assert.Equal(t, "517", row.AlternateID)
	assert.Equal(t, "B.Tech", row.Course)
	assert.Equal(t, "3rd", row.Year)
	assert.Equal(t, "5", row.Semester)
	assert.Equal(t, "ECE", row.Branch)
}

func TestNormalizeStudentRow_Fallbacks(t *testing.T) {
	row := normalizeStudentRow(map[string]interface{}{"full_name": "Only Name"})
	assert.Equal(t, "Only Name", row.Name)
	assert.Equal(t, "N/A", row.StudentID)
	assert.Equal(t, "N/A", row.Course)
	assert.Equal(t, "N/A", row.Year)
	assert.Equal(t, "N/A", row.Branch)
	assert.Equal(t, "Only Name-N/A", row.ID)
	assert.Equal(t, "", preferredStudentID(row))
}

func TestLeadingDigits(t *testing.T) {
	for in, want := range map[string]string{"2nd": "2", " 10 ": "10", "III": "", "": ""} {
		assert.Equal(t, want, leadingDigits(in), in)
	}
}

func TestSyncStudents_InsertsUpdatesAndSkips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student(t, "S-2", "Old Name")

	source := &fakeSource{table: "students", rows: []map[string]interface{}{
		{"student_id": "S-1", "name": "Anil", "course": "B.Com", "year": "2", "branch": "Accounts"},
		{"student_id": "S-2", "name": "New Name", "course": "B.Tech", "year": 2, "branch": "CSE"},
		{"student_id": "N/A", "name": "Ghost"},
		{"name": "No Id"},
	}}
	svc := NewStudentSyncService(source, f.students, nil, nil)

	summary, err := svc.SyncStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Skipped)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, `Sync complete for table "students".`, summary.Message)

	list, err := f.studSvc.List(ctx, dto.StudentFilter{Search: "s-"})
	require.NoError(t, err)
	require.Len(t, list.Data, 2)
	byNumber := map[string]dto.StudentResponse{}
	for _, st := range list.Data {
		byNumber[st.StudentID] = st
	}
	assert.Equal(t, "Anil", byNumber["S-1"].Name)
	assert.Equal(t, 2, byNumber["S-1"].Year)
	assert.Equal(t, "New Name", byNumber["S-2"].Name)
	assert.Equal(t, "CSE", byNumber["S-2"].Branch)

	// a second run changes nothing
	summary, err = svc.SyncStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 4, summary.Skipped)
}

func TestSyncStudents_PinReplacesRollNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student(t, "517", "Priya")

	source := &fakeSource{table: "students", rows: []map[string]interface{}{
		{"roll_no": "517", "pin": "21A91A0517", "name": "Priya", "course": "B.Tech", "year": 1},
	}}
	summary, err := NewStudentSyncService(source, f.students, nil, nil).SyncStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	list, err := f.studSvc.List(ctx, dto.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "21A91A0517", list.Data[0].StudentID)
}

func TestSyncStudents_EmptyTable(t *testing.T) {
	f := newFixture(t)
	summary, err := NewStudentSyncService(&fakeSource{table: "students"}, f.students, nil, nil).SyncStudents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No records found in student table.", summary.Message)
	assert.Zero(t, summary.Total)
}

func TestSyncStudents_SourceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := NewStudentSyncService(nil, f.students, nil, nil).SyncStudents(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable))

	missing := &fakeSource{table: "pupils", err: fmt.Errorf("%w: pupils", infra.ErrStudentTableMissing)}
	_, err = NewStudentSyncService(missing, f.students, nil, nil).Preview(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, `Table "pupils" not found in the configured database.`, err.Error())

	open := &fakeSource{table: "students", err: infra.ErrCircuitOpen}
	_, err = NewStudentSyncService(open, f.students, nil, nil).SyncStudents(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable))

	err = NewStudentSyncService(open, f.students, nil, nil).EnqueueSync(ctx, "tester")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	source := &fakeSource{table: "students", rows: []map[string]interface{}{
		{"id": 1, "name": "A"}, {"id": 2, "name": "B"},
	}}
	resp, err := NewStudentSyncService(source, f.students, nil, nil).Preview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "students", resp.Table)
	assert.Equal(t, "1", resp.Rows[0].StudentID)
}
