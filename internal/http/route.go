package httpapi

import "net/http"

// Resource identifies which catalog path a request addressed.
type Resource int

const (
	ResourceUnknown Resource = iota
	// ResourceCollection is /products.
	ResourceCollection
	// ResourceItem is /products/{id}.
	ResourceItem
)

// Route is the closed set of catalog operations.
type Route int

const (
	RouteUnknown Route = iota
	RouteListProducts
	RouteGetProduct
	RouteCreateProduct
	RouteUpdateProduct
	RouteDeleteProduct
)

func (r Route) String() string {
	switch r {
	case RouteListProducts:
		return "list_products"
	case RouteGetProduct:
		return "get_product"
	case RouteCreateProduct:
		return "create_product"
	case RouteUpdateProduct:
		return "update_product"
	case RouteDeleteProduct:
		return "delete_product"
	default:
		return "unknown"
	}
}

func resolveRoute(res Resource, method string) Route {
	switch res {
	case ResourceCollection:
		switch method {
		case http.MethodGet:
			return RouteListProducts
		case http.MethodPost:
			return RouteCreateProduct
		}
	case ResourceItem:
		switch method {
		case http.MethodGet:
			return RouteGetProduct
		case http.MethodPut:
			return RouteUpdateProduct
		case http.MethodDelete:
			return RouteDeleteProduct
		}
	}
	return RouteUnknown
}
