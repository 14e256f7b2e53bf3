package cart

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
)

// Identifier names the owner of a cart. A signed-in user always wins over a
// guest session carried by the same request.
type Identifier struct {
	UserID    *uuid.UUID
	SessionID string
}

func ForUser(id uuid.UUID) Identifier {
	return Identifier{UserID: &id}
}

func ForSession(sessionID string) Identifier {
	return Identifier{SessionID: strings.TrimSpace(sessionID)}
}

// IsUser reports whether the cart belongs to a signed-in user.
func (i Identifier) IsUser() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

func (i Identifier) Validate() error {
	if !i.IsUser() && strings.TrimSpace(i.SessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "a user or cart session is required")
	}
	return nil
}

// Owner returns the column values for a new cart.
func (i Identifier) Owner() (*uuid.UUID, *string) {
	if i.IsUser() {
		id := *i.UserID
		return &id, nil
	}
	session := strings.TrimSpace(i.SessionID)
	return nil, &session
}

func (i Identifier) scope(db *gorm.DB) *gorm.DB {
	if i.IsUser() {
		return db.Where("user_id = ?", *i.UserID)
	}
	return db.Where("session_id = ? AND user_id IS NULL", strings.TrimSpace(i.SessionID))
}

func (i Identifier) String() string {
	if i.IsUser() {
		return "user:" + i.UserID.String()
	}
	return "session:" + i.SessionID
}
