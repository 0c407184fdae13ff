// Package errors provides the error taxonomy for storefront operations.
// Callers match them with errors.Is; the wrapping message carries the detail.
package errors

import "errors"

var ErrInvalidProduct = errors.New("invalid product")
var ErrProductNotFound = errors.New("product not found")
var ErrOutOfStock = errors.New("product out of stock")
var ErrNotInCart = errors.New("product not in cart")
var ErrCatalogLoad = errors.New("catalog load failed")

var ErrDuplicateProduct = errors.New("duplicate product name")
var ErrInvalidSortOrder = errors.New("invalid sort order")
