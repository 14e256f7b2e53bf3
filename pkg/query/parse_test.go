package query

import (
	"net/url"
	"reflect"
	"strings"
	"testing"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"
)

var productsConfig = Config{
	SearchFields:   []string{"name", "description", "slug"},
	SortableFields: []string{"name", "createdAt", "price", "rating", "stockQuantity"},
	FilterableFields: []string{
		"name", "createdAt", "category", "price", "stockQuantity",
	},
	DefaultSort: "-createdAt",
}

func TestParseSearchSortAndPage(t *testing.T) {
	parsed, err := Parse(productsConfig, Params{
		"search": "phone",
		"sort":   "-price,name",
		"page":   "2",
		"limit":  "10",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantFilter := Search{Fields: []string{"name", "description", "slug"}, Term: "phone"}
	if !reflect.DeepEqual(parsed.Filter, wantFilter) {
		t.Fatalf("unexpected filter %#v", parsed.Filter)
	}
	wantSort := []SortField{{Field: "price", Desc: true}, {Field: "name"}}
	if !reflect.DeepEqual(parsed.Sort, wantSort) {
		t.Fatalf("unexpected sort %#v", parsed.Sort)
	}
	if want := (pagination.Options{Page: 2, Limit: 10, Skip: 10}); parsed.Pagination != want {
		t.Fatalf("unexpected pagination %+v", parsed.Pagination)
	}
}

func TestParseHugePageKeepsOffsetPositive(t *testing.T) {
	parsed, err := Parse(productsConfig, Params{"page": "9223372036854775807", "limit": "20"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	page := parsed.Pagination
	if page.Skip < 0 || page.Skip != (page.Page-1)*page.Limit {
		t.Fatalf("unexpected pagination %+v", page)
	}
}

func TestParseOperatorObjects(t *testing.T) {
	parsed, err := Parse(productsConfig, Params{
		"price":    map[string]any{"gte": "10", "lte": "100"},
		"category": "electronics",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := And{
		Condition{Field: "category", Op: OpEq, Value: "electronics", Raw: "electronics"},
		Condition{Field: "price", Op: OpGte, Value: int64(10), Raw: "10"},
		Condition{Field: "price", Op: OpLte, Value: int64(100), Raw: "100"},
	}
	if !reflect.DeepEqual(parsed.Filter, want) {
		t.Fatalf("unexpected filter %#v", parsed.Filter)
	}
	if want := []SortField{{Field: "createdAt", Desc: true}}; !reflect.DeepEqual(parsed.Sort, want) {
		t.Fatalf("expected default sort, got %#v", parsed.Sort)
	}
	if parsed.Pagination != (pagination.Options{Page: 1, Limit: 20}) {
		t.Fatalf("expected default pagination, got %+v", parsed.Pagination)
	}
}

func TestParseWhitelistsAreRespected(t *testing.T) {
	cfg := Config{
		FilterableFields: []string{"name"},
		SortableFields:   []string{"name"},
		SelectableFields: []string{"name", "price"},
	}
	parsed, err := Parse(cfg, Params{
		"name":     "lamp",
		"password": "hunter2",
		"role":     map[string]any{"ne": "admin"},
		"sort":     "-secret,name,name",
		"select":   "name,password_hash",
		"populate": "owner",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := (Condition{Field: "name", Op: OpEq, Value: "lamp", Raw: "lamp"}); !reflect.DeepEqual(parsed.Filter, And{want}) {
		t.Fatalf("unexpected filter %#v", parsed.Filter)
	}
	if want := []SortField{{Field: "name"}}; !reflect.DeepEqual(parsed.Sort, want) {
		t.Fatalf("unexpected sort %#v", parsed.Sort)
	}
	if want := []string{"name"}; !reflect.DeepEqual(parsed.Select, want) {
		t.Fatalf("unexpected select %#v", parsed.Select)
	}
	if len(parsed.Populate) != 0 {
		t.Fatalf("populate must need an explicit whitelist, got %v", parsed.Populate)
	}
	assertFields(t, parsed.Filter, func(field string) bool { return field == "name" })
}

func TestParseDropsUnknownOperators(t *testing.T) {
	parsed, err := Parse(Config{}, Params{
		"price": map[string]any{"between": "1,5", "$where": "1"},
		"stock": map[string]string{"exists": "maybe"},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Filter != nil {
		t.Fatalf("expected no conditions, got %#v", parsed.Filter)
	}
}

func TestParseListOperators(t *testing.T) {
	parsed, err := Parse(Config{}, Params{
		"status": map[string]any{"in": "active,inactive", "nin": "archived"},
		"tags":   []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := And{
		Condition{Field: "status", Op: OpIn, Value: []any{"active", "inactive"}, Raw: "active,inactive"},
		Condition{Field: "status", Op: OpNin, Value: []any{"archived"}, Raw: "archived"},
		Condition{Field: "tags", Op: OpEq, Value: []any{"a", "b"}, Raw: []string{"a", "b"}},
	}
	if !reflect.DeepEqual(parsed.Filter, want) {
		t.Fatalf("unexpected filter %#v", parsed.Filter)
	}
}

func TestParseRejectsOversizedInLists(t *testing.T) {
	values := make([]string, MaxListValues+1)
	for i := range values {
		values[i] = "x"
	}
	_, err := Parse(Config{}, Params{"sku": map[string]any{"in": strings.Join(values, ",")}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = Parse(Config{}, Params{"sku": map[string]any{"in": strings.Join(values[:MaxListValues], ",")}})
	if err != nil {
		t.Fatalf("list at the limit should pass: %v", err)
	}
}

func TestParseRejectsLimitAboveMax(t *testing.T) {
	_, err := Parse(Config{MaxLimit: 50}, Params{"limit": "51"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	parsed, err := Parse(Config{MaxLimit: 50}, Params{"limit": "abc", "page": "-3"})
	if err != nil {
		t.Fatalf("malformed paging should fall back to defaults: %v", err)
	}
	if parsed.Pagination != (pagination.Options{Page: 1, Limit: 20}) {
		t.Fatalf("unexpected pagination %+v", parsed.Pagination)
	}
}

func TestParseTruncatesSearch(t *testing.T) {
	term := strings.Repeat("é", MaxSearchLength+20)
	parsed, err := Parse(Config{SearchFields: []string{"name"}}, Params{"search": term})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	search, ok := parsed.Filter.(Search)
	if !ok {
		t.Fatalf("expected search predicate, got %#v", parsed.Filter)
	}
	if got := len([]rune(search.Term)); got != MaxSearchLength {
		t.Fatalf("expected %d runes, got %d", MaxSearchLength, got)
	}

	parsed, _ = Parse(Config{}, Params{"search": "phone"})
	if parsed.Filter != nil {
		t.Fatalf("search without fields should be dropped, got %#v", parsed.Filter)
	}
}

func TestParamsFromValues(t *testing.T) {
	values, err := url.ParseQuery("price[gte]=10&price[lte]=100&tags[]=a&tags[]=b&search=phone&color=red&color=blue")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	params := ParamsFromValues(values)

	if want := map[string]any{"gte": "10", "lte": "100"}; !reflect.DeepEqual(params["price"], want) {
		t.Fatalf("unexpected price %#v", params["price"])
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(params["tags"], want) {
		t.Fatalf("unexpected tags %#v", params["tags"])
	}
	if params.String("search") != "phone" {
		t.Fatalf("unexpected search %#v", params["search"])
	}
	if want := []string{"red", "blue"}; !reflect.DeepEqual(params.List("color"), want) {
		t.Fatalf("unexpected color %#v", params["color"])
	}
}

// assertFields walks the predicate tree and fails when a field is not allowed.
func assertFields(t *testing.T, p Predicate, ok func(string) bool) {
	t.Helper()
	switch v := p.(type) {
	case Condition:
		if !ok(v.Field) {
			t.Fatalf("field %q escaped the whitelist", v.Field)
		}
	case And:
		for _, child := range v {
			assertFields(t, child, ok)
		}
	case Or:
		for _, child := range v {
			assertFields(t, child, ok)
		}
	}
}
