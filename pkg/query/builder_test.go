package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
)

type testCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `json:"name"`
}

type testItem struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	SKU           string        `json:"sku"`
	Price         float64       `json:"price"`
	StockQuantity int           `json:"stock_quantity"`
	CategoryID    uint          `json:"category_id"`
	Category      *testCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`

	Hydrated bool `gorm:"-" json:"-"`
}

func (i *testItem) AfterFind(*gorm.DB) error {
	i.Hydrated = true
	return nil
}

var itemsConfig = Config{
	SearchFields:      []string{"name", "description"},
	SortableFields:    []string{"name", "price", "createdAt", "stockQuantity"},
	PopulatableFields: []string{"category"},
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:query_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testCategory{}, &testItem{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

// seedItems creates 25 items priced 10..250; even ids in category 1.
func seedItems(t *testing.T, conn *gorm.DB) {
	t.Helper()
	cats := []testCategory{{ID: 1, Name: "even"}, {ID: 2, Name: "odd"}}
	if err := conn.Create(&cats).Error; err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 25; i++ {
		cat := uint(2)
		if i%2 == 0 {
			cat = 1
		}
		item := testItem{
			Name:          fmt.Sprintf("Item %02d", i),
			SKU:           fmt.Sprintf("00%d", i),
			Price:         float64(i * 10),
			StockQuantity: i,
			CategoryID:    cat,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := conn.Create(&item).Error; err != nil {
			t.Fatalf("seed item %d: %v", i, err)
		}
	}
}

func TestExecutePaginatesAndSorts(t *testing.T) {
	conn := newTestDB(t)
	seedItems(t, conn)
	engine := New[testItem](itemsConfig)

	res, err := engine.Query(conn, Params{"page": "2", "limit": "10", "sort": "price"}).Paginate().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(res.Items))
	}
	if res.Items[0].Price != 110 || res.Items[9].Price != 200 {
		t.Fatalf("unexpected page bounds %v..%v", res.Items[0].Price, res.Items[9].Price)
	}
	info := res.Pagination
	if info == nil {
		t.Fatal("expected pagination info")
	}
	if info.TotalCount != 25 || info.TotalPages != 3 || !info.HasNext || !info.HasPrev {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.StartIndex != 11 || info.EndIndex != 20 {
		t.Fatalf("unexpected indices %+v", info)
	}
}

func TestExecuteDefaultSortIsNewestFirst(t *testing.T) {
	conn := newTestDB(t)
	seedItems(t, conn)
	cfg := itemsConfig
	cfg.DefaultSort = "-createdAt"

	res, err := New[testItem](cfg).Query(conn, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Items) != 25 || res.Pagination != nil {
		t.Fatalf("expected unpaginated 25 items, got %d", len(res.Items))
	}
	if res.Items[0].Name != "Item 25" {
		t.Fatalf("expected newest first, got %s", res.Items[0].Name)
	}
}

func TestExecuteOperatorFilters(t *testing.T) {
	conn := newTestDB(t)
	seedItems(t, conn)
	engine := New[testItem](itemsConfig)
	ctx := context.Background()

	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{name: "range", params: Params{"price": map[string]any{"gte": "100", "lte": "150"}}, want: 6},
		{name: "in", params: Params{"price": map[string]any{"in": "10,20,30"}}, want: 3},
		{name: "nin", params: Params{"category_id": map[string]any{"nin": "1"}}, want: 13},
		{name: "camel case column", params: Params{"stockQuantity": map[string]any{"lt": "5"}}, want: 4},
		{name: "comma list equality", params: Params{"name": "Item 01,Item 02"}, want: 2},
		{name: "ne", params: Params{"category_id": map[string]any{"ne": "2"}}, want: 12},
		{name: "exists", params: Params{"description": map[string]any{"exists": "false"}}, want: 0},
		{name: "text column keeps literal", params: Params{"sku": "007"}, want: 1},
		{name: "unknown column ignored", params: Params{"1=1; drop table test_items": "x", "price": "10"}, want: 1},
		{name: "regex ignored without REGEXP", params: Params{"name": map[string]any{"regex": "^Item 0"}}, want: 25},
		{name: "regex ignored beside other filters", params: Params{"name": map[string]any{"regex": "x"}, "category_id": "1"}, want: 12},
	}
	for _, tt := range tests {
		res, err := engine.Query(conn, tt.params).Execute(ctx)
		if err != nil {
			t.Fatalf("%s: Execute: %v", tt.name, err)
		}
		if len(res.Items) != tt.want {
			t.Fatalf("%s: expected %d items, got %d", tt.name, tt.want, len(res.Items))
		}
	}
}

func TestSearchEscapesLikeWildcards(t *testing.T) {
	conn := newTestDB(t)
	for _, name := range []string{"50% off lamp", "5000 mAh battery", "desk_lamp", "desklamp"} {
		if err := conn.Create(&testItem{Name: name}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	engine := New[testItem](itemsConfig)
	ctx := context.Background()

	for term, want := range map[string]int{"50%": 1, "DESK_": 1, "lamp": 3, "nothing": 0} {
		res, err := engine.Query(conn, Params{"search": term}).Execute(ctx)
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if len(res.Items) != want {
			t.Fatalf("search %q: expected %d got %d", term, want, len(res.Items))
		}
	}
}

func TestSelectPopulateAndLean(t *testing.T) {
	conn := newTestDB(t)
	seedItems(t, conn)
	engine := New[testItem](itemsConfig)
	ctx := context.Background()

	res, err := engine.Query(conn, Params{"populate": "category", "select": "name", "price": "20"}).Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(res.Items))
	}
	item := res.Items[0]
	if item.Name != "Item 02" || item.Price != 0 {
		t.Fatalf("projection not applied: %+v", item)
	}
	if item.Category == nil || item.Category.Name != "even" {
		t.Fatalf("expected category to be populated, got %+v", item.Category)
	}
	if !item.Hydrated {
		t.Fatal("expected hooks to run without Lean")
	}

	lean, err := engine.Query(conn, Params{"price": "20"}).Lean().FindOne(ctx)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if lean.Hydrated {
		t.Fatal("Lean should skip AfterFind")
	}
}

func TestFindOneCountExists(t *testing.T) {
	conn := newTestDB(t)
	seedItems(t, conn)
	engine := New[testItem](itemsConfig)
	ctx := context.Background()

	n, err := engine.Query(conn, Params{"category_id": "1"}).Count(ctx)
	if err != nil || n != 12 {
		t.Fatalf("expected 12, got %d err=%v", n, err)
	}

	ok, err := engine.Query(conn, Params{"price": map[string]any{"gt": "240"}}).Exists(ctx)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v err=%v", ok, err)
	}
	ok, err = engine.Query(conn, Params{"price": map[string]any{"gt": "250"}}).Exists(ctx)
	if err != nil || ok {
		t.Fatalf("expected no match, got %v err=%v", ok, err)
	}

	_, err = engine.Query(conn, Params{"name": "missing"}).FindOne(ctx)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	first, err := engine.Query(conn, Params{"sort": "-price"}).Where(Eq("category_id", 2)).FindOne(ctx)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if first.Name != "Item 25" {
		t.Fatalf("expected highest odd item, got %s", first.Name)
	}
}

func TestWhereCannotBeWidenedByParams(t *testing.T) {
	conn := newTestDB(t)
	seedItems(t, conn)
	engine := New[testItem](itemsConfig)

	res, err := engine.Query(conn, Params{"category_id": "2"}).Where(Eq("category_id", 1)).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Items) != 0 {
		t.Fatalf("expected scoped predicates to AND, got %d rows", len(res.Items))
	}
}

func TestLimitAboveMaxRejectedOnEveryPath(t *testing.T) {
	conn := newTestDB(t)
	engine := New[testItem](itemsConfig)
	ctx := context.Background()
	params := Params{"limit": "500"}

	_, err := engine.Query(conn, params).Paginate().Execute(ctx)
	assertCode(t, err, pkgerrors.CodeValidation)
	_, err = engine.Query(conn, params).Count(ctx)
	assertCode(t, err, pkgerrors.CodeValidation)
	_, err = engine.Query(conn, params).Exists(ctx)
	assertCode(t, err, pkgerrors.CodeValidation)
	_, err = engine.Query(conn, params).FindOne(ctx)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUnboundBuilderIsProgrammingError(t *testing.T) {
	_, err := New[testItem](itemsConfig).Query(nil, nil).Execute(context.Background())
	assertCode(t, err, pkgerrors.CodeInternal)
	if !errors.Is(err, ErrUnbound) {
		t.Fatalf("expected ErrUnbound in chain, got %v", err)
	}
}

func TestExpiredDeadlineIsRetryableDependencyError(t *testing.T) {
	conn := newTestDB(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := New[testItem](itemsConfig).Query(conn, nil).Paginate().Execute(ctx)
	assertCode(t, err, pkgerrors.CodeDependency)
	if !pkgerrors.As(err).Retryable() {
		t.Fatal("timeouts must be retryable")
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveQuery(entity, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s:%s:%v", entity, operation, err == nil))
}

func TestObserverSeesEveryTerminal(t *testing.T) {
	conn := newTestDB(t)
	obs := &recordingObserver{}
	engine := New[testItem](itemsConfig, WithEntity("items"), WithObserver(obs))
	ctx := context.Background()

	_, _ = engine.Query(conn, nil).Execute(ctx)
	_, _ = engine.Query(conn, nil).Count(ctx)
	_, _ = engine.Query(conn, nil).FindOne(ctx)

	want := []string{"items:execute:true", "items:count:true", "items:find_one:false"}
	if fmt.Sprint(obs.calls) != fmt.Sprint(want) {
		t.Fatalf("unexpected observations %v", obs.calls)
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
