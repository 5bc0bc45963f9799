package service

import (
	"testing"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/stretchr/testify/require"
)

var testAddress = domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701", Country: "US"}

func seedUser(t *testing.T, s *store.Store, email string) domain.User {
	t.Helper()
	u, err := s.Users.Insert(domain.User{Email: email, Name: "Test User", Role: domain.RoleCustomer})
	require.NoError(t, err)
	return u
}

func seedProduct(t *testing.T, s *store.Store, name string, price float64, stock int) domain.Product {
	t.Helper()
	w := 1.0
	p, err := s.Products.Insert(domain.Product{Name: name, Price: price, Stock: stock, Weight: &w})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, s *store.Store, id string) int {
	t.Helper()
	p, err := s.Products.FindByID(id)
	require.NoError(t, err)
	return p.Stock
}

func eventTypes(s *store.Store) []string {
	var types []string
	for _, e := range s.Events.FindAll() {
		types = append(types, e.EventType)
	}
	return types
}
