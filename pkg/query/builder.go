package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"
)

// ErrUnbound is returned when a builder has no database to run against.
var ErrUnbound = errors.New("query builder is not bound to a database")

// Observer receives the outcome of every terminal operation.
type Observer interface {
	ObserveQuery(entity, operation string, elapsed time.Duration, err error)
}

type Option func(*engineOptions)

type engineOptions struct {
	entity   string
	observer Observer
}

// WithEntity labels metrics and log output for the engine.
func WithEntity(name string) Option {
	return func(o *engineOptions) { o.entity = name }
}

func WithObserver(observer Observer) Option {
	return func(o *engineOptions) { o.observer = observer }
}

// Engine holds the configuration for one entity type. It is safe for
// concurrent use; each request gets its own Builder.
type Engine[T any] struct {
	cfg  Config
	opts engineOptions

	textOnce sync.Once
	textOK   bool
}

func New[T any](cfg Config, opts ...Option) *Engine[T] {
	e := &Engine[T]{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e
}

// Config returns the effective configuration with defaults applied.
func (e *Engine[T]) Config() Config {
	return e.cfg
}

// Query starts a builder for one request.
func (e *Engine[T]) Query(db *gorm.DB, params Params) *Builder[T] {
	if params == nil {
		params = Params{}
	}
	return &Builder[T]{engine: e, db: db, params: params}
}

func (e *Engine[T]) fullTextAvailable(db *gorm.DB) bool {
	if !e.cfg.EnableTextSearch || e.cfg.TextSearchIndex == "" || db.Dialector.Name() != "postgres" {
		return false
	}
	e.textOnce.Do(func() {
		e.textOK = db.Migrator().HasIndex(new(T), e.cfg.TextSearchIndex)
	})
	return e.textOK
}

func (e *Engine[T]) observe(operation string, start time.Time, err error) {
	if e.opts.observer != nil {
		e.opts.observer.ObserveQuery(e.opts.entity, operation, time.Since(start), err)
	}
}

// Result is the outcome of Execute. Pagination is set only after Paginate().
type Result[T any] struct {
	Items      []T              `json:"items"`
	Pagination *pagination.Info `json:"pagination,omitempty"`
}

// Builder accumulates modifiers for a single query. It is not safe for
// concurrent mutation.
type Builder[T any] struct {
	engine *Engine[T]
	db     *gorm.DB
	params Params

	paginate bool
	lean     bool
	selects  []string
	populate []string
	where    []Predicate
}

func (b *Builder[T]) Paginate() *Builder[T] {
	b.paginate = true
	return b
}

// Populate expands relations by dotted path, bypassing the populate whitelist.
func (b *Builder[T]) Populate(relations ...string) *Builder[T] {
	b.populate = append(b.populate, relations...)
	return b
}

// Select replaces any projection requested through params.
func (b *Builder[T]) Select(fields ...string) *Builder[T] {
	b.selects = fields
	return b
}

// Lean skips model hooks such as AfterFind on loaded rows.
func (b *Builder[T]) Lean() *Builder[T] {
	b.lean = true
	return b
}

// Where ANDs a trusted predicate onto the parsed filter.
func (b *Builder[T]) Where(p Predicate) *Builder[T] {
	if p != nil {
		b.where = append(b.where, p)
	}
	return b
}

// Parse returns the sanitized request, including Where predicates.
func (b *Builder[T]) Parse() (Parsed, error) {
	parsed, err := Parse(b.engine.cfg, b.params)
	if err != nil {
		return Parsed{}, err
	}
	parsed.Filter = Combine(append([]Predicate{parsed.Filter}, b.where...)...)
	if b.selects != nil {
		parsed.Select = b.selects
	}
	parsed.Populate = append(parsed.Populate, b.populate...)
	return parsed, nil
}

// Filter returns only the combined filter predicate.
func (b *Builder[T]) Filter() (Predicate, error) {
	parsed, err := b.Parse()
	if err != nil {
		return nil, err
	}
	return parsed.Filter, nil
}

func (b *Builder[T]) Execute(ctx context.Context) (*Result[T], error) {
	start := time.Now()
	res, err := b.execute(ctx)
	b.engine.observe("execute", start, err)
	return res, err
}

func (b *Builder[T]) execute(ctx context.Context) (*Result[T], error) {
	parsed, cols, err := b.prepare()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.engine.cfg.Timeout)
	defer cancel()

	items := []T{}
	if !b.paginate {
		if err := b.dataQuery(ctx, parsed, cols).Find(&items).Error; err != nil {
			return nil, storageError(ctx, err)
		}
		return &Result[T]{Items: items}, nil
	}

	var total int64
	page := parsed.Pagination
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.dataQuery(gctx, parsed, cols).Offset(page.Skip).Limit(page.Limit).Find(&items).Error
	})
	g.Go(func() error {
		return b.filtered(gctx, parsed, cols).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, storageError(ctx, err)
	}

	info := pagination.NewInfo(page, total)
	return &Result[T]{Items: items, Pagination: &info}, nil
}

// Count returns the number of rows matching the filter.
func (b *Builder[T]) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var total int64
	err := b.run(ctx, func(ctx context.Context, parsed Parsed, cols *columns) error {
		return b.filtered(ctx, parsed, cols).Count(&total).Error
	})
	b.engine.observe("count", start, err)
	return total, err
}

// Exists reports whether at least one row matches the filter.
func (b *Builder[T]) Exists(ctx context.Context) (bool, error) {
	start := time.Now()
	var n int64
	err := b.run(ctx, func(ctx context.Context, parsed Parsed, cols *columns) error {
		sub := b.filtered(ctx, parsed, cols).Select(cols.primaryKey()).Limit(1)
		return b.db.WithContext(ctx).Table("(?) AS sub", sub).Count(&n).Error
	})
	b.engine.observe("exists", start, err)
	return n > 0, err
}

// FindOne returns the first row in sort order, or a not-found error.
func (b *Builder[T]) FindOne(ctx context.Context) (*T, error) {
	start := time.Now()
	var rows []T
	var entity string
	err := b.run(ctx, func(ctx context.Context, parsed Parsed, cols *columns) error {
		entity = strings.ToLower(cols.schema.Name)
		return b.dataQuery(ctx, parsed, cols).Limit(1).Find(&rows).Error
	})
	if err == nil && len(rows) == 0 {
		err = pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", entity))
	}
	b.engine.observe("find_one", start, err)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (b *Builder[T]) run(ctx context.Context, fn func(context.Context, Parsed, *columns) error) error {
	parsed, cols, err := b.prepare()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, b.engine.cfg.Timeout)
	defer cancel()
	if err := fn(ctx, parsed, cols); err != nil {
		return storageError(ctx, err)
	}
	return nil
}

func (b *Builder[T]) prepare() (Parsed, *columns, error) {
	if b.db == nil {
		return Parsed{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ErrUnbound, "query has no entity binding")
	}
	parsed, err := b.Parse()
	if err != nil {
		return Parsed{}, nil, err
	}
	cols, err := newColumns(b.db, new(T))
	if err != nil {
		return Parsed{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve entity schema")
	}
	return parsed, cols, nil
}

func (b *Builder[T]) session(ctx context.Context) *gorm.DB {
	tx := b.db.WithContext(ctx)
	if b.lean {
		tx = tx.Session(&gorm.Session{SkipHooks: true})
	}
	return tx.Model(new(T))
}

func (b *Builder[T]) filtered(ctx context.Context, parsed Parsed, cols *columns) *gorm.DB {
	tx := b.session(ctx)
	comp := compiler{cols: cols, dialect: b.db.Dialector.Name(), fullText: b.engine.fullTextAvailable(b.db)}
	if expr, ok := comp.compile(parsed.Filter); ok {
		tx = tx.Clauses(clause.Where{Exprs: []clause.Expression{expr}})
	}
	return tx
}

func (b *Builder[T]) dataQuery(ctx context.Context, parsed Parsed, cols *columns) *gorm.DB {
	tx := b.filtered(ctx, parsed, cols)

	var foreignKeys []string
	for _, path := range parsed.Populate {
		preload, keys, ok := cols.relationPath(path)
		if !ok {
			continue
		}
		tx = tx.Preload(preload)
		foreignKeys = append(foreignKeys, keys...)
	}

	if selected := selectColumns(cols, parsed.Select, foreignKeys); len(selected) > 0 {
		tx = tx.Select(selected)
	}

	pk := cols.primaryKey()
	sortedByPK := false
	for _, sf := range parsed.Sort {
		field, ok := cols.field(sf.Field)
		if !ok {
			continue
		}
		sortedByPK = sortedByPK || field.DBName == pk
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: field.DBName}, Desc: sf.Desc})
	}
	if pk != "" && !sortedByPK {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: pk}})
	}
	return tx
}

func selectColumns(cols *columns, requested, foreignKeys []string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		if _, dup := seen[name]; dup || name == "" {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range requested {
		if field, ok := cols.field(name); ok {
			add(field.DBName)
		}
	}
	if len(out) == 0 {
		return nil
	}
	add(cols.primaryKey())
	for _, fk := range foreignKeys {
		add(fk)
	}
	return out
}

func storageError(ctx context.Context, err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query timed out")
	}
	if errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query cancelled")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query failed")
}
