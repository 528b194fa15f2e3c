package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type stubClassRepo struct {
	classes map[string]models.Class
}

func (r *stubClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := r.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

func (r *stubClassRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	var out []models.Class
	for _, class := range r.classes {
		if class.TeacherID == teacherID {
			out = append(out, class)
		}
	}
	return out, nil
}

func (r *stubClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = classID
	r.classes[class.ID] = *class
	return nil
}

func (r *stubClassRepo) UpdateScheduleDays(ctx context.Context, teacherID, id string, days models.ScheduleDays) error {
	class, ok := r.classes[id]
	if !ok || class.TeacherID != teacherID {
		return sql.ErrNoRows
	}
	class.ScheduleDays = days
	r.classes[id] = class
	return nil
}

func TestClassCreateParsesScheduleDays(t *testing.T) {
	svc := NewClassService(&stubClassRepo{classes: map[string]models.Class{}}, nil, nil)

	class, err := svc.Create(context.Background(), teacherID, dto.CreateClassRequest{
		Title: "Algebra", Amount: 3000, Currency: "usd", DurationMinutes: 60, ScheduleDays: []string{"wednesday", "Mon"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleDays{models.Monday, models.Wednesday}, class.ScheduleDays)
	assert.Equal(t, "USD", class.Currency)

	_, err = svc.Create(context.Background(), teacherID, dto.CreateClassRequest{
		Title: "Algebra", Amount: 3000, Currency: "USD", DurationMinutes: 60, ScheduleDays: []string{"Funday"},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestClassUpdateScheduleDays(t *testing.T) {
	repo := &stubClassRepo{classes: map[string]models.Class{
		classID: {ID: classID, TeacherID: teacherID, ScheduleDays: models.ScheduleDays{models.Monday}},
	}}
	svc := NewClassService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateScheduleDays(ctx, otherStudent, classID, dto.UpdateScheduleDaysRequest{ScheduleDays: []string{"Fri"}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	class, err := svc.UpdateScheduleDays(ctx, teacherID, classID, dto.UpdateScheduleDaysRequest{})
	require.NoError(t, err)
	assert.Nil(t, class.ScheduleDays)
	assert.False(t, class.ScheduleDays.Constrained())
}
