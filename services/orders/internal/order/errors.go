package order

import "errors"

var (
	ErrNotFound     = errors.New("order not found")
	ErrItemNotFound = errors.New("order item not found")
	ErrOrderClosed  = errors.New("order does not accept new items")
)
