package apiclient

import (
	"context"

	"github.com/bloggera/bloggera/internal/domain"
)

// ListCategories fetches the category reference list.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if _, err := c.execute(ctx, call{
		endpoint:      "category.list",
		path:          "/api/category/list",
		body:          struct{}{},
		result:        &out,
		authenticated: true,
	}); err != nil {
		return nil, err
	}
	return out, nil
}
