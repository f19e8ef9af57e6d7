package shopify

const productFields = `
fragment ProductFields on Product {
  id
  title
  variants(first: $variantsFirst) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ...VariantFields
    }
  }
}
`

const variantFields = `
fragment VariantFields on ProductVariant {
  id
  title
  price
  selectedOptions {
    name
    value
  }
}
`

// CollectionsQuery pages through collections with the first page of their
// products and variant options.
const CollectionsQuery = `
query collections($first: Int!, $after: String, $productsFirst: Int!, $variantsFirst: Int!) {
  collections(first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      id
      title
      products(first: $productsFirst) {
        pageInfo {
          hasNextPage
          endCursor
        }
        nodes {
          ...ProductFields
        }
      }
    }
  }
}
` + productFields + variantFields

// CollectionProductsQuery pages through the products of one collection.
const CollectionProductsQuery = `
query collectionProducts($id: ID!, $after: String, $productsFirst: Int!, $variantsFirst: Int!) {
  collection(id: $id) {
    products(first: $productsFirst, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        ...ProductFields
      }
    }
  }
}
` + productFields + variantFields

// ProductVariantsQuery pages through the variants of one product.
const ProductVariantsQuery = `
query productVariants($id: ID!, $after: String, $variantsFirst: Int!) {
  product(id: $id) {
    variants(first: $variantsFirst, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        ...VariantFields
      }
    }
  }
}
` + variantFields

// ProductVariantsBulkUpdateMutation sets prices on variants of one product.
const ProductVariantsBulkUpdateMutation = `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants {
      id
      price
    }
    userErrors {
      field
      message
    }
  }
}
`

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type collectionsData struct {
	Collections struct {
		PageInfo pageInfo         `json:"pageInfo"`
		Nodes    []collectionNode `json:"nodes"`
	} `json:"collections"`
}

type collectionNode struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Products productConnection `json:"products"`
}

type productConnection struct {
	PageInfo pageInfo      `json:"pageInfo"`
	Nodes    []productNode `json:"nodes"`
}

type productNode struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Variants variantConnection `json:"variants"`
}

type variantConnection struct {
	PageInfo pageInfo      `json:"pageInfo"`
	Nodes    []variantNode `json:"nodes"`
}

type collectionProductsData struct {
	Collection *struct {
		Products productConnection `json:"products"`
	} `json:"collection"`
}

type productVariantsData struct {
	Product *struct {
		Variants variantConnection `json:"variants"`
	} `json:"product"`
}

type variantNode struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Price           string           `json:"price"`
	SelectedOptions []selectedOption `json:"selectedOptions"`
}

type selectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type bulkUpdateData struct {
	ProductVariantsBulkUpdate struct {
		ProductVariants []struct {
			ID    string `json:"id"`
			Price string `json:"price"`
		} `json:"productVariants"`
		UserErrors []userError `json:"userErrors"`
	} `json:"productVariantsBulkUpdate"`
}
