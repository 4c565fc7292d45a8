package directory

import (
	"context"
	"testing"

	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/storage/memory"
	apperrors "github.com/emphub/workforce/internal/errors"
)

func newService() *Service {
	return New(memory.New(), nil)
}

func TestRegisterDefaultsToEmployee(t *testing.T) {
	svc := newService()

	created, err := svc.Register(context.Background(), "Frank", "Frank@Example.com ", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Role != user.RoleEmployee {
		t.Fatalf("expected employee default, got %s", created.Role)
	}
	if created.Email != "frank@example.com" {
		t.Fatalf("expected normalised email, got %q", created.Email)
	}
	if created.Verified {
		t.Fatal("new users start unverified")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()

	cases := []struct {
		name  string
		email string
		role  string
	}{
		{"empty email", "", "employee"},
		{"email without at", "frank.example.com", "employee"},
		{"invalid role", "frank@example.com", "superuser"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), "Frank", tc.email, tc.role)
			svcErr := apperrors.GetServiceError(err)
			if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Frank", "frank@example.com", "hr"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Register(ctx, "Other Frank", "FRANK@example.com", "employee")
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error for duplicate, got %v", err)
	}
}

func TestGetUnknownUser(t *testing.T) {
	svc := newService()

	_, err := svc.Get(context.Background(), "404")
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetVerified(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "Grace", "grace@example.com", "employee")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.SetVerified(ctx, created.ID, true)
	if err != nil {
		t.Fatalf("set verified: %v", err)
	}
	if !updated.Verified {
		t.Fatal("expected verified true")
	}

	updated, err = svc.SetVerified(ctx, created.ID, false)
	if err != nil {
		t.Fatalf("unset verified: %v", err)
	}
	if updated.Verified {
		t.Fatal("expected verified false")
	}
}

func TestHasRole(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "Heidi", "heidi@example.com", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name  string
		email string
		role  user.Role
		want  bool
	}{
		{"matching role", "heidi@example.com", user.RoleAdmin, true},
		{"other role", "heidi@example.com", user.RoleHR, false},
		{"unknown email", "nobody@example.com", user.RoleAdmin, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.HasRole(ctx, tc.email, tc.role)
			if err != nil {
				t.Fatalf("has role: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestListEmployeesExcludesOtherRoles(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	seed := []struct{ name, email, role string }{
		{"Ivan", "ivan@example.com", "employee"},
		{"Judy", "judy@example.com", "employee"},
		{"Kim", "kim@example.com", "hr"},
		{"Root", "root@example.com", "admin"},
	}
	for _, u := range seed {
		if _, err := svc.Register(ctx, u.name, u.email, u.role); err != nil {
			t.Fatalf("register %s: %v", u.email, err)
		}
	}

	employees, err := svc.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(employees))
	}
	for _, e := range employees {
		if e.Role != user.RoleEmployee {
			t.Fatalf("unexpected role %s in employee list", e.Role)
		}
	}
}
