package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/dbtest"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/security"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), client, config.QueryConfig{}, nil, bcrypt.MinCost, logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := pkgerrors.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestCreateNormalizesAndHashes(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Create(context.Background(), CreateInput{
		Name:     "  Karim  ",
		Email:    " Karim@Example.COM ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "karim@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Name != "Karim" {
		t.Fatalf("expected trimmed name, got %q", user.Name)
	}
	if user.Role != enums.UserRoleUser {
		t.Fatalf("expected default role user, got %s", user.Role)
	}
	ok, err := security.VerifyPassword("secret123", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{Name: "A", Email: "dup@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, CreateInput{Name: "B", Email: "DUP@example.com", Password: "secret123"})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "A", Email: "a@example.com", Password: "123"})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(ctx, CreateInput{Name: "A", Email: "a@example.com", Password: "secret123", Role: "owner"})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateDeleteAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user, err := svc.Create(ctx, CreateInput{Name: "Nadia", Email: "nadia@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	role := enums.UserRoleAdmin
	name := "Nadia Rahman"
	updated, err := svc.Update(ctx, user.ID, UpdateInput{Name: &name, Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != enums.UserRoleAdmin || updated.Name != name {
		t.Fatalf("unexpected user after update: %+v", updated)
	}

	fetched, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Role != enums.UserRoleAdmin {
		t.Fatalf("role not persisted: %s", fetched.Role)
	}

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.Get(ctx, user.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
	assertCode(t, svc.Delete(ctx, uuid.New()), pkgerrors.CodeNotFound)
}

func TestListSearchesAndFiltersByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, in := range []CreateInput{
		{Name: "Admin One", Email: "admin@example.com", Password: "secret123", Role: enums.UserRoleAdmin},
		{Name: "Shopper One", Email: "shopper1@example.com", Password: "secret123"},
		{Name: "Shopper Two", Email: "shopper2@example.com", Password: "secret123"},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("seed %s: %v", in.Email, err)
		}
	}

	res, err := svc.List(ctx, query.Params{"role": "user"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Pagination.TotalCount != 2 {
		t.Fatalf("expected 2 shoppers, got %d", res.Pagination.TotalCount)
	}

	res, err = svc.List(ctx, query.Params{"search": "admin"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Email != "admin@example.com" {
		t.Fatalf("unexpected search result: %+v", res.Items)
	}
}

func TestSelfServiceProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user, err := svc.Create(ctx, CreateInput{Name: "Tania", Email: "tania@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	me, err := svc.Me(ctx, user.ID)
	if err != nil || me.Email != "tania@example.com" {
		t.Fatalf("me: %+v err=%v", me, err)
	}
	_, err = svc.Me(ctx, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)

	updated, err := svc.UpdateMe(ctx, user.ID, UpdateMeInput{Name: "  Tania Akter "})
	if err != nil {
		t.Fatalf("update me: %v", err)
	}
	if updated.Name != "Tania Akter" || updated.Role != enums.UserRoleUser || updated.Email != "tania@example.com" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}
	_, err = svc.UpdateMe(ctx, user.ID, UpdateMeInput{Name: "   "})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestChangePasswordChecksOldPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user, err := svc.Create(ctx, CreateInput{Name: "Rafi", Email: "rafi@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "wrong-pass", NewPassword: "newsecret"})
	assertCode(t, err, pkgerrors.CodeValidation)
	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "secret123", NewPassword: "123"})
	assertCode(t, err, pkgerrors.CodeValidation)
	assertCode(t, svc.ChangePassword(ctx, uuid.New(), ChangePasswordInput{OldPassword: "a", NewPassword: "b"}), pkgerrors.CodeNotFound)

	if err := svc.ChangePassword(ctx, user.ID, ChangePasswordInput{OldPassword: "secret123", NewPassword: "newsecret"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	stored, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok, _ := security.VerifyPassword("newsecret", stored.PasswordHash); !ok {
		t.Fatal("new password does not verify")
	}
	if ok, _ := security.VerifyPassword("secret123", stored.PasswordHash); ok {
		t.Fatal("old password still verifies")
	}
}
