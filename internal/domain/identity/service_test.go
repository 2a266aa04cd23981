package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRadiologistRepo struct {
	records map[uuid.UUID]*Radiologist
}

func newMockRadiologistRepo() *mockRadiologistRepo {
	return &mockRadiologistRepo{records: make(map[uuid.UUID]*Radiologist)}
}

func (m *mockRadiologistRepo) Create(_ context.Context, r *Radiologist) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.records[r.ID] = r
	return nil
}

func (m *mockRadiologistRepo) GetByID(_ context.Context, id uuid.UUID) (*Radiologist, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRadiologistRepo) GetByEmail(_ context.Context, email string) (*Radiologist, error) {
	for _, r := range m.records {
		if r.Email == email {
			return r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRadiologistRepo) Update(_ context.Context, r *Radiologist) error {
	m.records[r.ID] = r
	return nil
}

func (m *mockRadiologistRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.records, id)
	return nil
}

func (m *mockRadiologistRepo) List(_ context.Context, limit, offset int) ([]*Radiologist, int, error) {
	var result []*Radiologist
	for _, r := range m.records {
		result = append(result, r)
	}
	return result, len(result), nil
}

func TestRegister_Valid(t *testing.T) {
	svc := NewService(newMockRadiologistRepo())

	rad := &Radiologist{FullName: "Dr. Amal Idrissi", Email: "Amal@Hospital.MA"}
	if err := svc.Register(context.Background(), rad); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rad.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if rad.Email != "amal@hospital.ma" {
		t.Errorf("expected lowercased email, got %s", rad.Email)
	}
	if rad.Status != "Active" {
		t.Errorf("expected default status Active, got %s", rad.Status)
	}
}

func TestRegister_Invalid(t *testing.T) {
	svc := NewService(newMockRadiologistRepo())

	tests := []struct {
		name string
		rad  Radiologist
	}{
		{"missing name", Radiologist{Email: "a@b.c"}},
		{"missing email", Radiologist{FullName: "Dr. X"}},
		{"malformed email", Radiologist{FullName: "Dr. X", Email: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(context.Background(), &tt.rad)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockRadiologistRepo())

	_, err := svc.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	svc := NewService(newMockRadiologistRepo())

	rad := &Radiologist{ID: uuid.New(), FullName: "Dr. Ghost"}
	if err := svc.UpdateProfile(context.Background(), rad); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByEmail(t *testing.T) {
	repo := newMockRadiologistRepo()
	svc := NewService(repo)

	rad := &Radiologist{FullName: "Dr. Amal Idrissi", Email: "amal@hospital.ma"}
	if err := svc.Register(context.Background(), rad); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetByEmail(context.Background(), "  AMAL@hospital.ma ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != rad.ID {
		t.Errorf("expected radiologist %s, got %s", rad.ID, got.ID)
	}
}
