package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/api/middleware"
	"github.com/mdsalahuddin2001/storefront-backend/internal/auth"
	productsvc "github.com/mdsalahuddin2001/storefront-backend/internal/products"
	"github.com/mdsalahuddin2001/storefront-backend/internal/users"
	"github.com/mdsalahuddin2001/storefront-backend/internal/vendors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/query"
)

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	healthy := pingerFunc(func(context.Context) error { return nil })
	broken := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, ReadyCheck{Name: "db", Pinger: healthy}, ReadyCheck{Name: "redis"})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Storefront-Env") != "test" {
		t.Fatal("expected env header")
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, ReadyCheck{Name: "db", Pinger: broken})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected error code %s", body.Error.Code)
	}
}

type stubAuthService struct {
	register func(context.Context, auth.RegisterRequest) (*auth.TokenResponse, error)
	login    func(context.Context, auth.LoginRequest) (*auth.TokenResponse, error)
}

func (s stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.TokenResponse, error) {
	return s.register(ctx, req)
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	return s.login(ctx, req)
}

func TestAuthRegisterValidatesBody(t *testing.T) {
	svc := stubAuthService{register: func(context.Context, auth.RegisterRequest) (*auth.TokenResponse, error) {
		t.Fatal("service must not be called for an invalid body")
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"name":"Rahim","email":"not-an-email","password":"secret1"}`))
	resp := httptest.NewRecorder()
	AuthRegister(svc, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Error.Details["email"] == nil {
		t.Fatalf("expected email detail, got %+v", body.Error.Details)
	}
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := stubAuthService{register: func(_ context.Context, req auth.RegisterRequest) (*auth.TokenResponse, error) {
		return &auth.TokenResponse{AccessToken: "token", TokenType: "Bearer", User: &users.UserDTO{Email: req.Email}}, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"name":"Rahim","email":"rahim@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()
	AuthRegister(svc, nil)(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"access_token":"token"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAuthLoginPropagatesUnauthorized(t *testing.T) {
	svc := stubAuthService{login: func(context.Context, auth.LoginRequest) (*auth.TokenResponse, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"rahim@example.com","password":"wrong"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, nil)(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Error.Message != "invalid credentials" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
}

type stubProductService struct {
	productsvc.Service
	lastList   productsvc.ListInput
	lastGet    bool
	lastCreate productsvc.CreateProductInput
	lastUpdate productsvc.UpdateProductInput
}

func (s *stubProductService) List(_ context.Context, input productsvc.ListInput) (*query.Result[models.Product], error) {
	s.lastList = input
	return &query.Result[models.Product]{
		Items:      []models.Product{{Name: "Rice"}},
		Pagination: &pagination.Info{Page: 1, Limit: 20, TotalCount: 1, TotalPages: 1},
	}, nil
}

func (s *stubProductService) Get(_ context.Context, id uuid.UUID, includeInactive bool) (*models.Product, error) {
	s.lastGet = includeInactive
	return &models.Product{ID: id, Name: "Rice"}, nil
}

func (s *stubProductService) Create(_ context.Context, input productsvc.CreateProductInput) (*models.Product, error) {
	s.lastCreate = input
	return &models.Product{Name: input.Name}, nil
}

func (s *stubProductService) Update(_ context.Context, id uuid.UUID, input productsvc.UpdateProductInput) (*models.Product, error) {
	s.lastUpdate = input
	return &models.Product{ID: id}, nil
}

func TestProductListOnlyAdminsSeeInactive(t *testing.T) {
	svc := &stubProductService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?include_inactive=true&search=rice&page=2", nil)

	resp := httptest.NewRecorder()
	ProductList(svc, false, nil)(resp, req)
	if resp.Code != http.StatusOK || svc.lastList.IncludeInactive {
		t.Fatalf("public listing must not include inactive products (status %d)", resp.Code)
	}
	if svc.lastList.Params.String("search") != "rice" {
		t.Fatalf("expected search param to reach the service")
	}

	var body struct {
		Data       []models.Product `json:"data"`
		Pagination pagination.Info  `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Pagination.TotalCount != 1 {
		t.Fatalf("unexpected page %+v", body)
	}

	ProductList(svc, true, nil)(httptest.NewRecorder(), req)
	if !svc.lastList.IncludeInactive {
		t.Fatal("admin listing should honour include_inactive")
	}
}

func TestProductGetRejectsBadID(t *testing.T) {
	svc := &stubProductService{}
	resp := httptest.NewRecorder()
	ProductGet(svc, false, nil)(resp, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", "nope"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminProductCreateAcceptsNumericOrStringPrice(t *testing.T) {
	categoryID := uuid.New()
	for _, price := range []string{`1250.5`, `"1250.50"`} {
		svc := &stubProductService{}
		body := `{"category_id":"` + categoryID.String() + `","name":"Rice","sku":"RICE-5","price":` + price + `,"stock_quantity":4}`
		resp := httptest.NewRecorder()
		AdminProductCreate(svc, nil)(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if resp.Code != http.StatusCreated {
			t.Fatalf("price %s: expected 201 got %d: %s", price, resp.Code, resp.Body.String())
		}
		if svc.lastCreate.CategoryID != categoryID || svc.lastCreate.StockQuantity != 4 {
			t.Fatalf("unexpected input %+v", svc.lastCreate)
		}
		if svc.lastCreate.Price != strings.Trim(price, `"`) {
			t.Fatalf("expected price %s got %s", price, svc.lastCreate.Price)
		}
	}
}

func TestAdminProductUpdatePartial(t *testing.T) {
	svc := &stubProductService{}
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"price":"99.99","status":"inactive"}`)), "productId", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminProductUpdate(svc, nil)(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastUpdate.Price == nil || *svc.lastUpdate.Price != "99.99" {
		t.Fatalf("expected price update, got %+v", svc.lastUpdate.Price)
	}
	if svc.lastUpdate.Status == nil || *svc.lastUpdate.Status != enums.ProductStatusInactive {
		t.Fatal("expected status update")
	}
	if svc.lastUpdate.Name != nil {
		t.Fatal("absent fields must stay nil")
	}
}

type stubVendorService struct {
	vendors.Service
	applied *uuid.UUID
	deleted *uuid.UUID
	update  vendors.UpdateInput
}

func (s *stubVendorService) Update(_ context.Context, id uuid.UUID, input vendors.UpdateInput) (*models.Vendor, error) {
	s.update = input
	return &models.Vendor{ID: id, ShopName: *input.ShopName}, nil
}

func (s *stubVendorService) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = &id
	return nil
}

func (s *stubVendorService) Apply(_ context.Context, userID uuid.UUID, input vendors.ApplyInput) (*models.Vendor, error) {
	s.applied = &userID
	return &models.Vendor{UserID: userID, ShopName: input.ShopName}, nil
}

func TestVendorApplyRequiresUser(t *testing.T) {
	svc := &stubVendorService{}
	resp := httptest.NewRecorder()
	VendorApply(svc, nil)(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"shop_name":"Corner"}`)))
	if resp.Code != http.StatusUnauthorized || svc.applied != nil {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"shop_name":"Corner"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp = httptest.NewRecorder()
	VendorApply(svc, nil)(resp, req)
	if resp.Code != http.StatusCreated || svc.applied == nil || *svc.applied != userID {
		t.Fatalf("expected application for %s, got %d", userID, resp.Code)
	}
}

func TestAdminVendorUpdateAndDelete(t *testing.T) {
	svc := &stubVendorService{}
	id := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"shop_name":"Renamed"}`)), "vendorId", id.String())
	resp := httptest.NewRecorder()
	AdminVendorUpdate(svc, nil)(resp, req)
	if resp.Code != http.StatusOK || svc.update.ShopName == nil || *svc.update.ShopName != "Renamed" {
		t.Fatalf("expected update, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.update.Address != nil {
		t.Fatal("absent fields must stay nil")
	}

	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "vendorId", id.String())
	resp = httptest.NewRecorder()
	AdminVendorDelete(svc, nil)(resp, req)
	if resp.Code != http.StatusNoContent || svc.deleted == nil || *svc.deleted != id {
		t.Fatalf("expected 204 delete of %s, got %d", id, resp.Code)
	}

	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "vendorId", "nope")
	resp = httptest.NewRecorder()
	AdminVendorDelete(svc, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.Code)
	}
}

type stubUserService struct {
	users.Service
	changed *users.ChangePasswordInput
}

func (s *stubUserService) Me(_ context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, Email: "me@example.com", PasswordHash: "secret-hash"}, nil
}

func (s *stubUserService) ChangePassword(_ context.Context, _ uuid.UUID, input users.ChangePasswordInput) error {
	s.changed = &input
	if input.OldPassword != "current" {
		return pkgerrors.New(pkgerrors.CodeValidation, "old password does not match")
	}
	return nil
}

func TestUserMeHidesPasswordHash(t *testing.T) {
	svc := &stubUserService{}
	resp := httptest.NewRecorder()
	UserMe(svc, nil)(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp = httptest.NewRecorder()
	UserMe(svc, nil)(resp, req)
	if resp.Code != http.StatusOK || strings.Contains(resp.Body.String(), "secret-hash") {
		t.Fatalf("expected sanitized profile, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUserChangePassword(t *testing.T) {
	svc := &stubUserService{}
	userCtx := middleware.WithUserID(context.Background(), uuid.NewString())

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"old_password":"current"}`)).WithContext(userCtx)
	resp := httptest.NewRecorder()
	UserChangePassword(svc, nil)(resp, req)
	if resp.Code != http.StatusBadRequest || svc.changed != nil {
		t.Fatalf("expected 400 before reaching service, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"old_password":"wrong","new_password":"brand-new"}`)).WithContext(userCtx)
	resp = httptest.NewRecorder()
	UserChangePassword(svc, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong password, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"old_password":"current","new_password":"brand-new"}`)).WithContext(userCtx)
	resp = httptest.NewRecorder()
	UserChangePassword(svc, nil)(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
