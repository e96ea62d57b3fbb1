package users

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/testutil"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *apperr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apperr.Error with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Fatalf("unexpected error code: got %s, want %s", apiErr.Code, code)
	}
}

func TestCreateUser(t *testing.T) {
	svc := NewService(testutil.OpenTestDB(t, "users_create"))
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{
		Name:     "reader",
		Email:    "reader@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if user.Password == "secret" {
		t.Fatal("password stored in plain text")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")) != nil {
		t.Fatal("stored hash does not verify the original password")
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInput{
			Name:     "another",
			Email:    "reader@example.com",
			Password: "secret",
		})
		assertCode(t, err, apperr.CodeConflict)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInput{Name: "reader"})
		assertCode(t, err, apperr.CodeInvalidInput)
	})
}

func TestUpdateUser(t *testing.T) {
	db := testutil.OpenTestDB(t, "users_update")
	svc := NewService(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "reader", "reader@example.com", "old-password", false)

	t.Run("name only", func(t *testing.T) {
		name := "renamed"
		updated, err := svc.Update(ctx, user.ID, UpdateInput{Name: &name}, false)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Name != "renamed" || updated.Email != "reader@example.com" {
			t.Fatalf("unexpected user after update: %+v", updated)
		}
	})

	t.Run("password is rehashed", func(t *testing.T) {
		password := "new-password"
		updated, err := svc.Update(ctx, user.ID, UpdateInput{Password: &password}, false)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("new-password")) != nil {
			t.Fatal("updated hash does not verify the new password")
		}
	})

	t.Run("isAdmin change requires admin actor", func(t *testing.T) {
		isAdmin := true
		_, err := svc.Update(ctx, user.ID, UpdateInput{IsAdmin: &isAdmin}, false)
		assertCode(t, err, apperr.CodeUnauthorized)

		updated, err := svc.Update(ctx, user.ID, UpdateInput{IsAdmin: &isAdmin}, true)
		if err != nil {
			t.Fatalf("update by admin: %v", err)
		}
		if !updated.IsAdmin {
			t.Fatal("isAdmin not updated by admin actor")
		}
	})

	t.Run("empty password rejected", func(t *testing.T) {
		empty := ""
		_, err := svc.Update(ctx, user.ID, UpdateInput{Password: &empty}, false)
		assertCode(t, err, apperr.CodeInvalidInput)
	})
}

func TestGetAndDeleteUser(t *testing.T) {
	db := testutil.OpenTestDB(t, "users_delete")
	svc := NewService(db)
	ctx := context.Background()

	user := testutil.SeedUser(t, db, "reader", "reader@example.com", "pw", false)

	got, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "reader" {
		t.Fatalf("unexpected user: %+v", got)
	}

	_, err = svc.Get(ctx, "not-a-uuid")
	assertCode(t, err, apperr.CodeInvalidID)

	name, err := svc.Delete(ctx, user.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if name != "reader" {
		t.Fatalf("unexpected deleted name: %s", name)
	}

	_, err = svc.Get(ctx, user.ID)
	assertCode(t, err, apperr.CodeNotFound)
}
