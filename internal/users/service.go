package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/sanitize"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/security"
)

// ListConfig exposes users to the admin listing. Password hashes are never selectable.
var ListConfig = query.Config{
	SearchFields:     []string{"name", "email"},
	SortableFields:   []string{"name", "email", "created_at"},
	FilterableFields: []string{"role", "created_at"},
	SelectableFields: []string{"id", "name", "email", "role", "created_at", "updated_at"},
	DefaultSort:      "-created_at",
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params query.Params) (*query.Result[models.User], error)

	// Me, UpdateMe and ChangePassword act on the signed-in caller's own account.
	Me(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateMe(ctx context.Context, id uuid.UUID, input UpdateMeInput) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, input ChangePasswordInput) error
}

type service struct {
	repo       *Repository
	dbClient   *db.Client
	engine     *query.Engine[models.User]
	bcryptCost int
	logg       *logger.Logger
}

// NewService wires the user service. bcryptCost <= 0 uses the library default.
func NewService(repo *Repository, dbClient *db.Client, cfg config.QueryConfig, observer query.Observer, bcryptCost int, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	opts := []query.Option{query.WithEntity("users")}
	if observer != nil {
		opts = append(opts, query.WithObserver(observer))
	}
	return &service{
		repo:       repo,
		dbClient:   dbClient,
		engine:     query.New[models.User](ListConfig.WithLimits(cfg.DefaultLimit, cfg.MaxLimit, cfg.Timeout), opts...),
		bcryptCost: bcryptCost,
		logg:       logg,
	}, nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	name := sanitize.Text(input.Name)
	email := NormalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	hash, err := security.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	user := &models.User{Name: name, Email: email, Role: role, PasswordHash: hash}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user.created")
	return user, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return user, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if input.Name != nil {
		if user.Name = sanitize.Text(*input.Name); user.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
	}
	if input.Email != nil {
		if user.Email = NormalizeEmail(*input.Email); user.Email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
		}
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		user.PasswordHash = hash
	}
	if err := s.repo.Save(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return user, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user.deleted")
	return nil
}

func (s *service) List(ctx context.Context, params query.Params) (*query.Result[models.User], error) {
	return s.engine.Query(s.dbClient.DB(), params).Paginate().Execute(ctx)
}

func (s *service) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.Get(ctx, id)
}

// UpdateMe only touches the display name; email and role stay admin-managed.
func (s *service) UpdateMe(ctx context.Context, id uuid.UUID, input UpdateMeInput) (*models.User, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please provide at least one field to update")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	user.Name = name
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return user, nil
}

// ChangePassword requires the current password before storing the new hash.
func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, input ChangePasswordInput) error {
	if input.OldPassword == "" || input.NewPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "please provide old_password and new_password")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err)
	}
	ok, err := security.VerifyPassword(input.OldPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "old password does not match")
	}
	hash, err := security.HashPassword(input.NewPassword, s.bcryptCost)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	user.PasswordHash = hash
	if err := s.repo.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user.password_changed")
	return nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
