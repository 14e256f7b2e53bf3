package pagination

import (
	"math"
	"testing"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
)

func TestResolveDefaultsAndClamps(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        Options
	}{
		{name: "defaults", want: Options{Page: 1, Limit: 20, Skip: 0}},
		{name: "negative page", page: -4, limit: 10, want: Options{Page: 1, Limit: 10, Skip: 0}},
		{name: "negative limit", page: 2, limit: -3, want: Options{Page: 2, Limit: 1, Skip: 1}},
		{name: "third page", page: 3, limit: 20, want: Options{Page: 3, Limit: 20, Skip: 40}},
		{name: "at max", page: 1, limit: 100, want: Options{Page: 1, Limit: 100, Skip: 0}},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.page, tt.limit, 20, 100)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: expected %+v got %+v", tt.name, tt.want, got)
		}
	}
}

func TestResolveRejectsLimitAboveMax(t *testing.T) {
	_, err := Resolve(1, 101, 20, 100)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg != "limit exceeds maximum allowed: 100" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestNewInfoMath(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		total int64
		want  Info
	}{
		{
			name:  "first of three pages",
			opts:  Options{Page: 1, Limit: 20, Skip: 0},
			total: 45,
			want:  Info{Page: 1, Limit: 20, TotalCount: 45, TotalPages: 3, HasNext: true, StartIndex: 1, EndIndex: 20},
		},
		{
			name:  "last partial page",
			opts:  Options{Page: 3, Limit: 20, Skip: 40},
			total: 45,
			want:  Info{Page: 3, Limit: 20, TotalCount: 45, TotalPages: 3, HasPrev: true, StartIndex: 41, EndIndex: 45},
		},
		{
			name:  "empty",
			opts:  Options{Page: 1, Limit: 20, Skip: 0},
			total: 0,
			want:  Info{Page: 1, Limit: 20},
		},
		{
			name:  "past the end",
			opts:  Options{Page: 5, Limit: 10, Skip: 40},
			total: 12,
			want:  Info{Page: 5, Limit: 10, TotalCount: 12, TotalPages: 2, HasPrev: true, StartIndex: 41, EndIndex: 12},
		},
	}
	for _, tt := range tests {
		if got := NewInfo(tt.opts, tt.total); got != tt.want {
			t.Fatalf("%s: expected %+v got %+v", tt.name, tt.want, got)
		}
	}
}

func TestNewInfoInvariantsHold(t *testing.T) {
	for total := int64(0); total <= 57; total++ {
		for limit := 1; limit <= 12; limit++ {
			for page := 1; page <= 8; page++ {
				opts, err := Resolve(page, limit, 20, 100)
				if err != nil {
					t.Fatalf("resolve: %v", err)
				}
				info := NewInfo(opts, total)
				if int64(info.TotalPages-1)*int64(limit) >= total && total > 0 {
					t.Fatalf("total pages too large: %+v", info)
				}
				if int64(info.TotalPages)*int64(limit) < total {
					t.Fatalf("total pages too small: %+v", info)
				}
				if info.HasNext != (page < info.TotalPages) || info.HasPrev != (page > 1) {
					t.Fatalf("navigation flags wrong: %+v", info)
				}
				if total == 0 && (info.StartIndex != 0 || info.EndIndex != 0) {
					t.Fatalf("empty result must have zero indices: %+v", info)
				}
			}
		}
	}
}

func TestResolveClampsHugePage(t *testing.T) {
	for _, limit := range []int{1, 20, 100} {
		opts, err := Resolve(math.MaxInt, limit, 20, 100)
		if err != nil {
			t.Fatalf("limit %d: unexpected error %v", limit, err)
		}
		if opts.Skip < 0 || opts.Skip != (opts.Page-1)*opts.Limit {
			t.Fatalf("limit %d: inconsistent options %+v", limit, opts)
		}
		info := NewInfo(opts, 5)
		if info.StartIndex != int64(opts.Skip)+1 || info.EndIndex != 5 || info.HasNext || !info.HasPrev {
			t.Fatalf("limit %d: unexpected info %+v", limit, info)
		}
	}
}
