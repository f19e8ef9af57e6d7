package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/metalrate/internal/catalog"
	"github.com/Simplici0/metalrate/internal/config"
	"github.com/Simplici0/metalrate/internal/pricing"
)

type recordedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestClient(t *testing.T, handler func(call int, req recordedRequest) string) (*Client, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req recordedRequest
		require.NoError(t, json.Unmarshal(body, &req))
		call := len(requests)
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handler(call, req))
	}))
	t.Cleanup(ts.Close)

	cfg := config.ShopifyConfig{ShopDomain: "https://gold.myshopify.com/", AccessToken: "shpat_test", APIVersion: "2025-01"}
	return NewClient(cfg, nil, WithEndpoint(ts.URL), WithHTTPClient(ts.Client())), &requests
}

func TestNewClientNormalizesDomain(t *testing.T) {
	c := NewClient(config.ShopifyConfig{ShopDomain: "https://gold.myshopify.com/", APIVersion: "2025-01"}, nil)
	require.Equal(t, "https://gold.myshopify.com/admin/api/2025-01/graphql.json", c.endpoint)
}

func TestExecuteReturnsGraphQLErrors(t *testing.T) {
	c, _ := newTestClient(t, func(_ int, req recordedRequest) string {
		return `{"errors":[{"message":"Throttled"},{"message":"Access denied"}]}`
	})

	err := c.Execute(context.Background(), "{ shop { id } }", nil, nil)
	require.EqualError(t, err, "graphQL errors: Throttled; Access denied")
}

func TestExecuteNonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(ts.Close)

	c := NewClient(config.ShopifyConfig{}, nil, WithEndpoint(ts.URL))
	err := c.Execute(context.Background(), "{ shop { id } }", nil, nil)
	require.ErrorContains(t, err, "status 401")
}

func TestLoadCatalogPaginatesAndFlattens(t *testing.T) {
	pages := []string{
		`{"data":{"collections":{"pageInfo":{"hasNextPage":true,"endCursor":"c1"},"nodes":[
			{"id":"gid://shopify/Collection/1","title":"Gold 24K","products":{"nodes":[
				{"id":"gid://shopify/Product/10","title":"Coin","variants":{"nodes":[
					{"id":"gid://shopify/ProductVariant/100","title":"10g","price":"5000.00","selectedOptions":[{"name":"Weight","value":"10g"}]},
					{"id":"gid://shopify/ProductVariant/101","title":"M","price":"20.00","selectedOptions":[{"name":"Size","value":"M"}]}
				]}},
				{"id":"gid://shopify/Product/11","title":"Empty","variants":{"nodes":[]}}
			]}}
		]}}}`,
		`{"data":{"collections":{"pageInfo":{"hasNextPage":false,"endCursor":""},"nodes":[
			{"id":"gid://shopify/Collection/2","title":"Silver","products":{"nodes":[]}}
		]}}}`,
	}
	c, requests := newTestClient(t, func(call int, _ recordedRequest) string {
		return pages[call]
	})

	collections, err := c.LoadCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 2)
	require.Len(t, *requests, 2)
	require.Nil(t, (*requests)[0].Variables["after"])
	require.Equal(t, "c1", (*requests)[1].Variables["after"])

	gold := collections[0]
	require.Equal(t, "Gold 24K", gold.Title)
	require.Len(t, gold.Products, 2)
	require.Equal(t, "gid://shopify/Product/10::gid://shopify/ProductVariant/100", gold.Products[0].ID)
	require.NotNil(t, gold.Products[0].WeightGrams)
	require.Equal(t, 10.0, *gold.Products[0].WeightGrams)
	require.Equal(t, 5000.0, gold.Products[0].BasePrice)
	require.Nil(t, gold.Products[1].WeightGrams)

	require.Empty(t, collections[1].Products)
}

func TestLoadCatalogFetchesRemainingProductsAndVariants(t *testing.T) {
	c, requests := newTestClient(t, func(_ int, req recordedRequest) string {
		switch {
		case strings.Contains(req.Query, "query collectionProducts"):
			return `{"data":{"collection":{"products":{"pageInfo":{"hasNextPage":false,"endCursor":"p2"},"nodes":[
				{"id":"P2","title":"Bar","variants":{"pageInfo":{"hasNextPage":false},"nodes":[
					{"id":"V3","title":"100g","price":"90.00","selectedOptions":[{"name":"Grams","value":"100"}]}
				]}}
			]}}}}`
		case strings.Contains(req.Query, "query productVariants"):
			return `{"data":{"product":{"variants":{"pageInfo":{"hasNextPage":false,"endCursor":"v2"},"nodes":[
				{"id":"V2","title":"20g","price":"10000.00","selectedOptions":[{"name":"Weight","value":"20g"}]}
			]}}}}`
		default:
			return `{"data":{"collections":{"pageInfo":{"hasNextPage":false},"nodes":[
				{"id":"C1","title":"Gold 24K","products":{"pageInfo":{"hasNextPage":true,"endCursor":"p1"},"nodes":[
					{"id":"P1","title":"Coin","variants":{"pageInfo":{"hasNextPage":true,"endCursor":"v1"},"nodes":[
						{"id":"V1","title":"10g","price":"5000.00","selectedOptions":[{"name":"Weight","value":"10g"}]}
					]}}
				]}}
			]}}}`
		}
	})

	collections, err := c.LoadCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 1)
	require.Len(t, *requests, 3)

	productsReq := (*requests)[1]
	require.Contains(t, productsReq.Query, "query collectionProducts")
	require.Equal(t, "C1", productsReq.Variables["id"])
	require.Equal(t, "p1", productsReq.Variables["after"])

	variantsReq := (*requests)[2]
	require.Contains(t, variantsReq.Query, "query productVariants")
	require.Equal(t, "P1", variantsReq.Variables["id"])
	require.Equal(t, "v1", variantsReq.Variables["after"])

	rows := collections[0].Products
	require.Len(t, rows, 3)
	require.Equal(t, []string{"P1::V1", "P1::V2", "P2::V3"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
	require.Equal(t, 3, catalog.Summarize(collections).WithWeight)
}

func TestLoadCatalogFailsWhenProductPageFails(t *testing.T) {
	c, _ := newTestClient(t, func(_ int, req recordedRequest) string {
		if strings.Contains(req.Query, "query collectionProducts") {
			return `{"errors":[{"message":"Throttled"}]}`
		}
		return `{"data":{"collections":{"pageInfo":{"hasNextPage":false},"nodes":[
			{"id":"C1","title":"Gold 24K","products":{"pageInfo":{"hasNextPage":true,"endCursor":"p1"},"nodes":[]}}
		]}}}`
	})

	_, err := c.LoadCatalog(context.Background())
	require.ErrorContains(t, err, "load products of C1")
	require.ErrorContains(t, err, "Throttled")
}

func TestUpdatePricesGroupsByProduct(t *testing.T) {
	c, requests := newTestClient(t, func(_ int, req recordedRequest) string {
		variants := req.Variables["variants"].([]any)
		nodes := make([]map[string]any, 0, len(variants))
		for _, v := range variants {
			m := v.(map[string]any)
			nodes = append(nodes, map[string]any{"id": m["id"], "price": m["price"]})
		}
		raw, _ := json.Marshal(map[string]any{"data": map[string]any{
			"productVariantsBulkUpdate": map[string]any{"productVariants": nodes, "userErrors": []any{}},
		}})
		return string(raw)
	})

	outcome, err := c.UpdatePrices(context.Background(), pricing.Submission{Updates: []pricing.ChangeRecord{
		{ProductID: "p1", VariantID: "v1", NewPrice: 60000},
		{ProductID: "p2", VariantID: "v2", NewPrice: 12.345},
		{ProductID: "p1", VariantID: "v3", NewPrice: 10},
	}})
	require.NoError(t, err)
	require.Equal(t, pricing.Outcome{OK: true, Updated: 3}, outcome)

	require.Len(t, *requests, 2)
	first := (*requests)[0]
	require.Equal(t, "p1", first.Variables["productId"])
	variants := first.Variables["variants"].([]any)
	require.Len(t, variants, 2)
	require.Equal(t, "60000.00", variants[0].(map[string]any)["price"])
	require.Equal(t, "10.00", variants[1].(map[string]any)["price"])

	second := (*requests)[1]
	require.Equal(t, "p2", second.Variables["productId"])
	require.Equal(t, "12.35", second.Variables["variants"].([]any)[0].(map[string]any)["price"])
}

func TestUpdatePricesStopsOnUserErrors(t *testing.T) {
	c, requests := newTestClient(t, func(_ int, req recordedRequest) string {
		return `{"data":{"productVariantsBulkUpdate":{"productVariants":[],"userErrors":[{"field":["variants","0","price"],"message":"Price must be positive"}]}}}`
	})

	outcome, err := c.UpdatePrices(context.Background(), pricing.Submission{Updates: []pricing.ChangeRecord{
		{ProductID: "p1", VariantID: "v1", NewPrice: -5},
		{ProductID: "p2", VariantID: "v2", NewPrice: 5},
	}})
	require.Error(t, err)
	require.ErrorContains(t, err, "variants.0.price: Price must be positive")
	require.Equal(t, pricing.Outcome{OK: false, Updated: 0}, outcome)
	require.Len(t, *requests, 1)
}

func TestUpdatePricesEmptySubmission(t *testing.T) {
	c, requests := newTestClient(t, func(_ int, req recordedRequest) string {
		t.Errorf("no request expected")
		return "{}"
	})

	outcome, err := c.UpdatePrices(context.Background(), pricing.Submission{})
	require.NoError(t, err)
	require.Equal(t, pricing.Outcome{OK: true}, outcome)
	require.Empty(t, *requests)
}
