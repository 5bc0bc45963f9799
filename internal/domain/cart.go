package domain

import (
	"slices"
	"time"
)

type CartItem struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

type Cart struct {
	Base
	UserID string     `json:"userId"`
	Items  []CartItem `json:"items"`
}

func (c Cart) Clone() Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

// ItemIndex returns the position of the line for productID, or -1.
func (c Cart) ItemIndex(productID string) int {
	return slices.IndexFunc(c.Items, func(i CartItem) bool { return i.ProductID == productID })
}

func (c Cart) ItemCount() int {
	n := 0
	for _, i := range c.Items {
		n += i.Quantity
	}
	return n
}
