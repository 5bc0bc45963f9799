package domain

import "slices"

// DefaultItemWeight is used for products that do not declare a weight.
const DefaultItemWeight = 0.5

type Product struct {
	Base
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	CategoryID  string   `json:"categoryId"`
	Stock       int      `json:"stock"`
	SKU         string   `json:"sku,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Featured    bool     `json:"featured"`
	Tags        []string `json:"tags,omitempty"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
}

func (p Product) Clone() Product {
	p.Tags = slices.Clone(p.Tags)
	if p.Weight != nil {
		w := *p.Weight
		p.Weight = &w
	}
	return p
}

// ItemWeight returns the declared weight or the default.
func (p Product) ItemWeight() float64 {
	if p.Weight == nil {
		return DefaultItemWeight
	}
	return *p.Weight
}

func (p Product) InStock() bool {
	return p.Stock > 0
}
