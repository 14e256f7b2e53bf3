// Package dbtest opens throwaway SQLite databases migrated with every model.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/db/models"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/enums"
	"github.com/mdsalahuddin2001/storefront-backend/pkg/logger"
)

// Open returns a client bound to a private in-memory database. Connections are
// capped at one so concurrent transactions serialize the way row locks would.
func Open(t testing.TB) *db.Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DBConfig{
		DSN:          fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()),
		MaxOpenConns: 1,
	}
	client, err := db.New(context.Background(), cfg, true, logger.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// SeedCategory inserts a category with a unique slug.
func SeedCategory(t testing.TB, client *db.Client, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug(name)}
	if err := client.DB().Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// SeedProduct inserts an active product priced in cents with the given stock.
func SeedProduct(t testing.TB, client *db.Client, categoryID uuid.UUID, name string, priceCents int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:    categoryID,
		Name:          name,
		Slug:          slug(name),
		SKU:           "SKU-" + uuid.NewString()[:8],
		PriceCents:    priceCents,
		StockQuantity: stock,
		Status:        enums.ProductStatusActive,
	}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, client *db.Client, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test " + role.String(),
		Email:        fmt.Sprintf("sf_test_%s@example.com", uuid.NewString()),
		Role:         role,
		PasswordHash: "hash",
	}
	if err := client.DB().Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + uuid.NewString()[:8]
}
