// Package errors provides custom error types for catalog, cart and sale operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrKitNotFound = errors.New("kit not found")
var ErrInvalidInput = errors.New("invalid input")
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrEmptyCart = errors.New("cart is empty")
var ErrProductInUse = errors.New("product is referenced by a kit")
