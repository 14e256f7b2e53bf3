package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWritePageIncludesPagination(t *testing.T) {
	w := httptest.NewRecorder()
	info := pagination.NewInfo(pagination.Options{Page: 2, Limit: 10, Skip: 10}, 25)
	WritePage(w, []string{"a"}, &info)

	var body struct {
		Data       []string        `json:"data"`
		Pagination pagination.Info `json:"pagination"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Pagination.TotalPages != 3 || !body.Pagination.HasNext || !body.Pagination.HasPrev {
		t.Fatalf("unexpected pagination %+v", body.Pagination)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeConflict, "Shirt: only 1 available").
		WithDetails(map[string]string{"product": "shirt"})
	WriteError(context.Background(), logger.Nop(), w, err)

	if got := w.Code; got != http.StatusConflict {
		t.Fatalf("expected status 409 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeConflict) || body.Error.Message != "Shirt: only 1 available" {
		t.Fatalf("unexpected error %+v", body.Error)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorHidesInternalText(t *testing.T) {
	cases := []error{
		errors.New("boom"),
		pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp 10.0.0.5:5432"), "load cart").WithDetails(map[string]any{"host": "db"}),
	}
	for _, in := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, in)

		if w.Code < http.StatusInternalServerError {
			t.Fatalf("expected 5xx, got %d", w.Code)
		}
		raw := w.Body.String()
		if strings.Contains(raw, "boom") || strings.Contains(raw, "10.0.0.5") || strings.Contains(raw, "load cart") {
			t.Fatalf("internal text leaked: %s", raw)
		}
		var body types.ErrorEnvelope
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Details != nil {
			t.Fatalf("details should be omitted for server errors")
		}
	}
}

func TestWriteErrorRateLimit(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}
