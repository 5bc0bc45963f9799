package http

import (
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
)

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid("%s must be an integer", key)
	}
	return v, nil
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.Invalid("%s must be a number", key)
	}
	return &v, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.Invalid("%s must be true or false", key)
	}
	return &v, nil
}

// pageRequest reads page and limit; the service applies defaults and caps.
func pageRequest(r *http.Request) (service.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return service.PageRequest{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.PageRequest{}, err
	}
	if page < 0 || limit < 0 {
		return service.PageRequest{}, domain.Invalid("page and limit must be positive")
	}
	return service.PageRequest{Page: page, Limit: limit}, nil
}
