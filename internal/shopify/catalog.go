package shopify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/catalog"
)

const (
	collectionsPageSize = 25
	productsPageSize    = 50
	variantsPageSize    = 100
)

// LoadCatalog fetches every collection with its flattened variant rows.
// Products and variants beyond the first page are fetched per collection and
// per product, so no collection is truncated.
func (c *Client) LoadCatalog(ctx context.Context) ([]catalog.Collection, error) {
	collections := make([]catalog.Collection, 0)
	after := ""
	for {
		variables := map[string]any{
			"first":         collectionsPageSize,
			"productsFirst": productsPageSize,
			"variantsFirst": variantsPageSize,
		}
		if after != "" {
			variables["after"] = after
		}

		var data collectionsData
		if err := c.Execute(ctx, CollectionsQuery, variables, &data); err != nil {
			return nil, err
		}
		for _, node := range data.Collections.Nodes {
			products, err := c.remainingProducts(ctx, node.ID, node.Products)
			if err != nil {
				return nil, err
			}
			for i := range products {
				variants, err := c.remainingVariants(ctx, products[i].ID, products[i].Variants)
				if err != nil {
					return nil, err
				}
				products[i].Variants.Nodes = variants
			}
			collections = append(collections, toCollection(node.ID, node.Title, products))
		}

		next, ok := nextCursor(data.Collections.PageInfo)
		if !ok {
			break
		}
		after = next
	}

	c.logger.Info("shopify catalog loaded", zap.Int("collections", len(collections)))
	return collections, nil
}

func (c *Client) remainingProducts(ctx context.Context, collectionID string, first productConnection) ([]productNode, error) {
	products := first.Nodes
	page := first.PageInfo
	for {
		after, ok := nextCursor(page)
		if !ok {
			return products, nil
		}

		var data collectionProductsData
		err := c.Execute(ctx, CollectionProductsQuery, map[string]any{
			"id":            collectionID,
			"after":         after,
			"productsFirst": productsPageSize,
			"variantsFirst": variantsPageSize,
		}, &data)
		if err != nil {
			return nil, fmt.Errorf("load products of %s: %w", collectionID, err)
		}
		if data.Collection == nil {
			return nil, fmt.Errorf("load products of %s: collection not found", collectionID)
		}
		products = append(products, data.Collection.Products.Nodes...)
		page = data.Collection.Products.PageInfo
	}
}

func (c *Client) remainingVariants(ctx context.Context, productID string, first variantConnection) ([]variantNode, error) {
	variants := first.Nodes
	page := first.PageInfo
	for {
		after, ok := nextCursor(page)
		if !ok {
			return variants, nil
		}

		var data productVariantsData
		err := c.Execute(ctx, ProductVariantsQuery, map[string]any{
			"id":            productID,
			"after":         after,
			"variantsFirst": variantsPageSize,
		}, &data)
		if err != nil {
			return nil, fmt.Errorf("load variants of %s: %w", productID, err)
		}
		if data.Product == nil {
			return nil, fmt.Errorf("load variants of %s: product not found", productID)
		}
		variants = append(variants, data.Product.Variants.Nodes...)
		page = data.Product.Variants.PageInfo
	}
}

func nextCursor(page pageInfo) (string, bool) {
	if !page.HasNextPage || strings.TrimSpace(page.EndCursor) == "" {
		return "", false
	}
	return page.EndCursor, true
}

func toCollection(id, title string, nodes []productNode) catalog.Collection {
	products := make([]catalog.Product, 0, len(nodes))
	for _, p := range nodes {
		product := catalog.Product{ID: p.ID, Title: p.Title}
		for _, v := range p.Variants.Nodes {
			options := make([]catalog.Option, 0, len(v.SelectedOptions))
			for _, o := range v.SelectedOptions {
				options = append(options, catalog.Option{Name: o.Name, Value: o.Value})
			}
			product.Variants = append(product.Variants, catalog.Variant{
				ID:      v.ID,
				Title:   v.Title,
				Price:   v.Price,
				Options: options,
			})
		}
		products = append(products, product)
	}
	return catalog.Collection{
		ID:       id,
		Title:    title,
		Products: catalog.Flatten(products),
	}
}
