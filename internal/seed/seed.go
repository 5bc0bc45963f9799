// Package seed loads demo data into the record store at startup. The data is
// kept as SQL migrations, applied to a throwaway in-memory SQLite database and
// copied from there into the store.
package seed

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Summary struct {
	Categories int
	Products   int
	Users      int
}

type Loader struct {
	bcryptCost int
	log        *zap.Logger
}

func NewLoader(log *zap.Logger) *Loader {
	return &Loader{bcryptCost: bcrypt.DefaultCost, log: log}
}

func (l *Loader) WithBcryptCost(cost int) *Loader {
	l.bcryptCost = cost
	return l
}

// Load copies the seed data into s. It fails on the first record the store
// rejects, so it is meant for an empty store.
func (l *Loader) Load(ctx context.Context, s *store.Store) (Summary, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		return Summary{}, err
	}

	var sum Summary
	if sum.Categories, err = l.loadCategories(ctx, db, s); err != nil {
		return sum, err
	}
	if sum.Products, err = l.loadProducts(ctx, db, s); err != nil {
		return sum, err
	}
	if sum.Users, err = l.loadUsers(ctx, db, s); err != nil {
		return sum, err
	}

	l.log.Info("seed data loaded",
		zap.Int("categories", sum.Categories),
		zap.Int("products", sum.Products),
		zap.Int("users", sum.Users))
	return sum, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (l *Loader) loadCategories(ctx context.Context, db *sql.DB, s *store.Store) (int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, slug, description, parent_id
		FROM categories
		ORDER BY position
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var c domain.Category
		var parent sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &parent); err != nil {
			return n, fmt.Errorf("failed to scan category: %w", err)
		}
		if parent.Valid {
			c.ParentID = &parent.String
		}
		if _, err := s.Categories.Insert(c); err != nil {
			return n, fmt.Errorf("seed category %s: %w", c.ID, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("row iteration error: %w", err)
	}
	return n, nil
}

func (l *Loader) loadProducts(ctx context.Context, db *sql.DB, s *store.Store) (int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, price, COALESCE(category_id, ''), stock, sku, weight, image_url, featured, tags
		FROM products
		ORDER BY position
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var p domain.Product
		var weight sql.NullFloat64
		var tags string
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.CategoryID,
			&p.Stock,
			&p.SKU,
			&weight,
			&p.ImageURL,
			&p.Featured,
			&tags,
		)
		if err != nil {
			return n, fmt.Errorf("failed to scan product: %w", err)
		}
		if weight.Valid {
			p.Weight = &weight.Float64
		}
		if tags != "" {
			p.Tags = strings.Split(tags, ",")
		}
		if _, err := s.Products.Insert(p); err != nil {
			return n, fmt.Errorf("seed product %s: %w", p.ID, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("row iteration error: %w", err)
	}
	return n, nil
}

func (l *Loader) loadUsers(ctx context.Context, db *sql.DB, s *store.Store) (int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, email, name, password, role, phone, street, city, zip, country
		FROM users
		ORDER BY position
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var u domain.User
		var password string
		var street, city, zip, country sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &password, &u.Role, &u.Phone, &street, &city, &zip, &country); err != nil {
			return n, fmt.Errorf("failed to scan user: %w", err)
		}
		if street.Valid {
			u.Address = &domain.Address{Street: street.String, City: city.String, Zip: zip.String, Country: country.String}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), l.bcryptCost)
		if err != nil {
			return n, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		u.PasswordHash = string(hash)

		if _, err := s.Users.Insert(u); err != nil {
			return n, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("row iteration error: %w", err)
	}
	return n, nil
}
