package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/sanitize"
)

var ListConfig = query.Config{
	SearchFields:      []string{"name", "slug"},
	SortableFields:    []string{"name", "created_at"},
	FilterableFields:  []string{"parent_id", "type", "slug", "name"},
	PopulatableFields: []string{"parent", "children"},
	DefaultSort:       "name",
}

// Node is one category with its descendants.
type Node struct {
	models.Category
	Children []*Node `json:"children"`
}

type Input struct {
	Name     string
	Slug     string
	Icon     string
	Image    string
	Type     string
	ParentID *uuid.UUID
}

type Service interface {
	List(ctx context.Context, params query.Params) (*query.Result[models.Category], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Tree(ctx context.Context) ([]*Node, error)
	Create(ctx context.Context, createdBy *uuid.UUID, input Input) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	engine   *query.Engine[models.Category]
	logg     *logger.Logger
}

func NewService(repo *Repository, dbClient *db.Client, cfg config.QueryConfig, observer query.Observer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	opts := []query.Option{query.WithEntity("categories")}
	if observer != nil {
		opts = append(opts, query.WithObserver(observer))
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		engine:   query.New[models.Category](ListConfig.WithLimits(cfg.DefaultLimit, cfg.MaxLimit, cfg.Timeout), opts...),
		logg:     logg,
	}, nil
}

func (s *service) List(ctx context.Context, params query.Params) (*query.Result[models.Category], error) {
	return s.engine.Query(s.dbClient.DB(), params).Paginate().Execute(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return category, nil
}

// Tree assembles the full hierarchy from parent links. Categories whose
// parent no longer exists are promoted to roots.
func (s *service) Tree(ctx context.Context) ([]*Node, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load categories")
	}
	return BuildTree(rows), nil
}

// BuildTree links rows by ParentID, preserving input order among siblings.
func BuildTree(rows []models.Category) []*Node {
	nodes := make(map[uuid.UUID]*Node, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &Node{Category: row, Children: []*Node{}}
	}
	roots := []*Node{}
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentID != nil {
			if parent, ok := nodes[*row.ParentID]; ok && *row.ParentID != row.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

func (s *service) Create(ctx context.Context, createdBy *uuid.UUID, input Input) (*models.Category, error) {
	category := &models.Category{CreatedBy: createdBy}
	if err := applyInput(category, input); err != nil {
		return nil, err
	}
	if category.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *category.ParentID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, writeError(err)
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", category.ID.String()), "category.created")
	return category, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.Category, error) {
	var out *models.Category
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		category, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		if err := applyInput(category, input); err != nil {
			return err
		}
		if category.ParentID != nil {
			all, err := repo.All(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load categories")
			}
			if err := checkParent(all, id, *category.ParentID); err != nil {
				return err
			}
		}
		category.Children = nil
		if err := repo.Save(ctx, category); err != nil {
			return writeError(err)
		}
		out = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "category_id", id.String()), "category.updated")
	return out, nil
}

// Delete refuses categories that still hold products and re-parents children.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		category, err := repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err)
		}
		n, err := repo.CountProducts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
		}
		if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("category has %d products", n))
		}
		if err := repo.DetachChildren(ctx, id, category.ParentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach children")
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		return nil
	})
}

// checkParent rejects a parent that is the category itself or one of its descendants.
func checkParent(all []models.Category, id, parentID uuid.UUID) error {
	parents := make(map[uuid.UUID]*uuid.UUID, len(all))
	for _, c := range all {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "parent category does not exist")
	}
	cur := &parentID
	for steps := 0; cur != nil && steps <= len(parents); steps++ {
		if *cur == id {
			return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be nested under itself")
		}
		cur = parents[*cur]
	}
	return nil
}

func applyInput(category *models.Category, input Input) error {
	name := sanitize.Text(strings.TrimSpace(input.Name))
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := sanitize.Slug(input.Slug)
	if slug == "" {
		slug = sanitize.Slug(name)
	}
	if slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	category.Name = name
	category.Slug = slug
	category.Icon = strings.TrimSpace(input.Icon)
	category.Image = strings.TrimSpace(input.Image)
	category.Type = strings.TrimSpace(input.Type)
	category.ParentID = input.ParentID
	return nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
}

func writeError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "a category with this slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist category")
}
