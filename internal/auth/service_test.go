package auth

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mdsalahuddin2001/storefront-backend/internal/users"
	pkgAuth "github.com/mdsalahuddin2001/storefront-backend/pkg/auth"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/dbtest"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "storefront-test", ExpirationMinutes: 30}

func newTestService(t *testing.T) Service {
	t.Helper()
	client := dbtest.Open(t)
	repo := users.NewRepository(client.DB())
	userSvc, err := users.NewService(repo, client, config.QueryConfig{}, nil, bcrypt.MinCost, logger.Nop())
	if err != nil {
		t.Fatalf("users service: %v", err)
	}
	svc, err := NewService(ServiceParams{UserRepo: repo, UserService: userSvc, JWTConfig: testJWT})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return svc
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{Name: "Sadia", Email: "Sadia@Example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", registered.User.Role)
	}
	if registered.ExpiresIn != 1800 {
		t.Fatalf("expected 1800s expiry, got %d", registered.ExpiresIn)
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "sadia@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Fatalf("token subject mismatch: %s vs %s", claims.UserID, registered.User.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Name: "Tanvir", Email: "tanvir@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []LoginRequest{
		{Email: "tanvir@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "secret123"},
		{Email: "", Password: "secret123"},
	}
	for _, tc := range cases {
		_, err := svc.Login(ctx, tc)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
			t.Fatalf("login %q: expected unauthorized, got %v", tc.Email, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	req := RegisterRequest{Name: "Dup", Email: "dup@example.com", Password: "secret123"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, req)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
