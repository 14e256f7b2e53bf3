package query

import (
	"time"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"
)

const (
	DefaultSort    = "createdAt"
	DefaultTimeout = 30 * time.Second

	// MaxSearchLength bounds the free-text term before it reaches SQL.
	MaxSearchLength = 100
	// MaxListValues bounds in/nin operands.
	MaxListValues = 1000
)

// Config describes what a single entity exposes to list queries. Whitelists
// are fail-open: a key outside a non-empty list is ignored, and an empty list
// allows any name that resolves to a real column.
type Config struct {
	SearchFields      []string
	SortableFields    []string
	SelectableFields  []string
	FilterableFields  []string
	PopulatableFields []string

	DefaultSort  string
	DefaultLimit int
	MaxLimit     int

	EnableTextSearch bool
	// TextSearchIndex names the full-text index whose presence turns on
	// indexed search.
	TextSearchIndex string

	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultSort == "" {
		c.DefaultSort = DefaultSort
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = pagination.MaxLimit
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = pagination.DefaultLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// WithLimits overrides the paging and timeout defaults, typically from
// process configuration.
func (c Config) WithLimits(defaultLimit, maxLimit int, timeout time.Duration) Config {
	if defaultLimit > 0 {
		c.DefaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		c.MaxLimit = maxLimit
	}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return c
}

func allowed(list []string, name string) bool {
	if len(list) == 0 {
		return true
	}
	for _, candidate := range list {
		if candidate == name {
			return true
		}
	}
	return false
}
