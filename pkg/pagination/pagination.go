package pagination

import (
	"math"

	pkgerrors "github.com/mdsalahuddin2001/storefront-backend/pkg/errors"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows a single page can request.
	MaxLimit = 100
	// maxSkip keeps page*limit arithmetic far from integer overflow.
	maxSkip = math.MaxInt32
)

// Options is a normalized offset page request.
type Options struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Skip  int `json:"-"`
}

// Info describes the page returned alongside list results.
type Info struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
	StartIndex int64 `json:"start_index"`
	EndIndex   int64 `json:"end_index"`
}

// Resolve clamps a raw page/limit pair. Zero values fall back to page 1 and
// defaultLimit. A limit above maxLimit is rejected rather than clamped. Huge
// page numbers are clamped so the offset stays positive.
func Resolve(page, limit, defaultLimit, maxLimit int) (Options, error) {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	if limit > maxLimit {
		return Options{}, pkgerrors.Newf(pkgerrors.CodeValidation, "limit exceeds maximum allowed: %d", maxLimit)
	}

	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if maxPage := maxSkip/limit + 1; page > maxPage {
		page = maxPage
	}
	return Options{Page: page, Limit: limit, Skip: (page - 1) * limit}, nil
}

// NewInfo derives page metadata from opts and the total match count.
func NewInfo(opts Options, total int64) Info {
	info := Info{Page: opts.Page, Limit: opts.Limit, TotalCount: total}
	if opts.Limit > 0 {
		info.TotalPages = int(math.Ceil(float64(total) / float64(opts.Limit)))
	}
	info.HasNext = opts.Page < info.TotalPages
	info.HasPrev = opts.Page > 1
	if total > 0 {
		info.StartIndex = int64(opts.Skip) + 1
		info.EndIndex = min(int64(opts.Skip+opts.Limit), total)
	}
	return info
}
