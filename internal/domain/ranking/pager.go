package ranking

import (
	"context"
	"fmt"

	"github.com/okian/partystats/internal/domain/model"
)

// DefaultPageSize is the number of rows in a ranking page.
const DefaultPageSize = 10

// FetchFunc loads display rows for exactly the given codes.
type FetchFunc func(ctx context.Context, codes []string) ([]model.VoteRow, error)

// Pager cuts ordered key lists into fixed-size pages.
type Pager struct {
	pageSize int
}

// NewPager creates a Pager. A non-positive size selects DefaultPageSize.
func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{pageSize: pageSize}
}

// PageSize returns the configured page size.
func (p *Pager) PageSize() int { return p.pageSize }

// Window returns the keys on page (1-based) and the page metadata.
// A page past the end yields an empty window with the same totals.
func (p *Pager) Window(keys []string, page int) ([]string, model.Page, error) {
	if page < 1 {
		return nil, model.Page{}, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	total := len(keys)
	meta := model.Page{
		Items:       []model.RankingItem{},
		CurrentPage: page,
		PageSize:    p.pageSize,
		TotalItems:  total,
		TotalPages:  (total + p.pageSize - 1) / p.pageSize,
	}
	start := (page - 1) * p.pageSize
	if start >= total {
		return []string{}, meta, nil
	}
	end := min(start+p.pageSize, total)
	return keys[start:end], meta, nil
}

// Page fetches the rows on page and returns them in key order. Codes the
// fetch does not return are left out.
func (p *Pager) Page(ctx context.Context, keys []string, page int, fetch FetchFunc) (model.Page, error) {
	window, meta, err := p.Window(keys, page)
	if err != nil {
		return model.Page{}, err
	}
	if len(window) == 0 {
		return meta, nil
	}

	rows, err := fetch(ctx, window)
	if err != nil {
		return model.Page{}, err
	}
	byCode := make(map[string]model.VoteRow, len(rows))
	for _, r := range rows {
		byCode[r.Code] = r
	}
	items := make([]model.RankingItem, 0, len(window))
	for _, code := range window {
		r, ok := byCode[code]
		if !ok {
			continue
		}
		items = append(items, model.RankingItem{
			Code:        r.Code,
			Name:        r.Name,
			Rate:        r.Rate,
			SupportText: r.SupportText,
		})
	}
	meta.Items = items
	return meta, nil
}
