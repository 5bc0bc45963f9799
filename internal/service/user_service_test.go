package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/shop-api/internal/auth"
	"github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setupUsers(t *testing.T) (*UserService, *store.Store) {
	t.Helper()
	s := store.New()
	svc := NewUserService(s, auth.NewTokenIssuer("test-secret", time.Hour), zap.NewNop()).WithBcryptCost(bcrypt.MinCost)
	return svc, s
}

func register(t *testing.T, svc *UserService, email string) domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{Email: email, Password: "password123", Name: "Jane Doe"})
	require.NoError(t, err)
	return u
}

func TestUserService_Register(t *testing.T) {
	svc, _ := setupUsers(t)

	u := register(t, svc, "Jane@Example.com")
	assert.Equal(t, domain.RoleCustomer, u.Role)
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))

	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "password123", Name: "Copy"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Password: "password123", Name: "x"}},
		{"short password", RegisterInput{Email: "a@b.co", Password: "short", Name: "x"}},
		{"no name", RegisterInput{Email: "a@b.co", Password: "password123"}},
		{"bad role", RegisterInput{Email: "a@b.co", Password: "password123", Name: "x", Role: "root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestUserService_LoginAndAuthenticate(t *testing.T) {
	svc, _ := setupUsers(t)
	u := register(t, svc, "jane@example.com")

	_, err := svc.Login(context.Background(), "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	res, err := svc.Login(context.Background(), " JANE@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.User.LastLoginAt)

	me, err := svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUserService_UpdateDeleteAndPassword(t *testing.T) {
	svc, s := setupUsers(t)
	ctx := context.Background()
	jane := register(t, svc, "jane@example.com")
	register(t, svc, "john@example.com")

	updated, err := svc.Update(ctx, jane.ID, UserUpdate{Name: ptr("Jane Smith"), Address: &testAddress})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Equal(t, "Springfield", updated.Address.City)

	_, err = svc.Update(ctx, jane.ID, UserUpdate{Email: ptr("JOHN@example.com")})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	err = svc.ChangePassword(ctx, jane.ID, "wrong", "newpassword1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	err = svc.ChangePassword(ctx, jane.ID, "password123", "tiny")
	assert.ErrorIs(t, err, domain.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, jane.ID, "password123", "newpassword1"))
	_, err = svc.Login(ctx, "jane@example.com", "newpassword1")
	assert.NoError(t, err)

	_, err = s.Carts.Insert(domain.Cart{UserID: jane.ID})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Carts.Count(nil))

	_, err = svc.Get(ctx, jane.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	users, page := svc.List(ctx, UserFilter{}, PageRequest{})
	assert.Len(t, users, 1)
	assert.Equal(t, 1, page.Total)
}

func TestUserService_DeleteDropsCachedCart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.New()
	carts := NewCartService(s, NewOrderService(s, zap.NewNop()), cache.NewRedisCache(client), zap.NewNop())
	svc := NewUserService(s, auth.NewTokenIssuer("test-secret", time.Hour), zap.NewNop()).
		WithCarts(carts).
		WithBcryptCost(bcrypt.MinCost)
	ctx := context.Background()

	jane := register(t, svc, "jane@example.com")
	p := seedProduct(t, s, "Widget", 10, 5)
	_, err := carts.AddItem(ctx, jane.ID, p.ID, 1)
	require.NoError(t, err)
	view, err := carts.GetCart(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.True(t, mr.Exists("cart:"+jane.ID))

	_, err = svc.Delete(ctx, jane.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Carts.Count(nil))
	assert.False(t, mr.Exists("cart:"+jane.ID))

	view, err = carts.GetCart(ctx, jane.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
