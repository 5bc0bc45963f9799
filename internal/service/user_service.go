package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/auth"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// CartDropper removes a user's cart along with anything cached for it.
type CartDropper interface {
	Drop(ctx context.Context, userID string)
}

type UserService struct {
	store      *store.Store
	tokens     *auth.TokenIssuer
	carts      CartDropper
	log        *zap.Logger
	bcryptCost int
	now        func() time.Time
}

func NewUserService(s *store.Store, tokens *auth.TokenIssuer, log *zap.Logger) *UserService {
	return &UserService{
		store:      s,
		tokens:     tokens,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// WithCarts routes cart removal on user deletion through carts so cached
// copies are dropped too.
func (s *UserService) WithCarts(carts CartDropper) *UserService {
	s.carts = carts
	return s
}

// WithBcryptCost overrides the hashing cost, e.g. bcrypt.MinCost in tests.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

type RegisterInput struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Role     domain.Role     `json:"role"`
	Phone    string          `json:"phone"`
	Address  *domain.Address `json:"address"`
}

type UserUpdate struct {
	Email   *string         `json:"email"`
	Name    *string         `json:"name"`
	Phone   *string         `json:"phone"`
	Address *domain.Address `json:"address"`
	Role    *domain.Role    `json:"role"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

type UserFilter struct {
	Role domain.Role
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return domain.Invalid("invalid email address %q", email)
	}
	return nil
}

func validateRole(r domain.Role) error {
	if r != domain.RoleCustomer && r != domain.RoleAdmin {
		return domain.Invalid("unknown role %q", r)
	}
	return nil
}

func (s *UserService) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", domain.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *UserService) Register(_ context.Context, in RegisterInput) (domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.User{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.User{}, domain.Invalid("name is required")
	}
	if in.Role == "" {
		in.Role = domain.RoleCustomer
	}
	if err := validateRole(in.Role); err != nil {
		return domain.User{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	created, err := s.store.Users.Insert(domain.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         in.Role,
		Phone:        in.Phone,
		Address:      in.Address,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

// Login checks the credentials and issues a bearer token.
func (s *UserService) Login(_ context.Context, email, password string) (LoginResult, error) {
	u, ok := s.store.Users.FindByUnique(store.IndexUserEmail, store.NormalizeEmail(email))
	if !ok {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now()
	u, err = s.store.Users.Update(u.ID, func(u *domain.User) error {
		u.LastLoginAt = &now
		return nil
	})
	if err != nil {
		return LoginResult{}, notFound("user", u.ID, err)
	}
	return LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(_ context.Context, token string) (domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, &domain.Error{Kind: domain.ErrUnauthorized, Message: err.Error()}
	}
	u, err := s.store.Users.FindByID(claims.Subject)
	if err != nil {
		return domain.User{}, &domain.Error{Kind: domain.ErrUnauthorized, Message: "token user no longer exists"}
	}
	return u, nil
}

func (s *UserService) List(_ context.Context, filter UserFilter, page PageRequest) ([]domain.User, Pagination) {
	users := s.store.Users.Find(func(u domain.User) bool {
		return filter.Role == "" || u.Role == filter.Role
	})
	return Paginate(users, page)
}

func (s *UserService) Get(_ context.Context, id string) (domain.User, error) {
	u, err := s.store.Users.FindByID(id)
	if err != nil {
		return domain.User{}, notFound("user", id, err)
	}
	return u, nil
}

func (s *UserService) Update(_ context.Context, id string, upd UserUpdate) (domain.User, error) {
	if upd.Email != nil {
		if err := validateEmail(strings.TrimSpace(*upd.Email)); err != nil {
			return domain.User{}, err
		}
	}
	if upd.Role != nil {
		if err := validateRole(*upd.Role); err != nil {
			return domain.User{}, err
		}
	}

	updated, err := s.store.Users.Update(id, func(u *domain.User) error {
		if upd.Email != nil {
			u.Email = strings.TrimSpace(*upd.Email)
		}
		if upd.Name != nil {
			if strings.TrimSpace(*upd.Name) == "" {
				return domain.Invalid("name cannot be empty")
			}
			u.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Phone != nil {
			u.Phone = *upd.Phone
		}
		if upd.Address != nil {
			a := *upd.Address
			u.Address = &a
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, notFound("user", id, err)
	}
	return updated, nil
}

// Delete removes the user and their cart. Orders, payments and reviews are kept.
func (s *UserService) Delete(ctx context.Context, id string) (domain.User, error) {
	var removed domain.User
	err := s.store.Atomically(func() error {
		var err error
		removed, err = s.store.Users.Delete(id)
		if err != nil {
			return err
		}
		s.store.Carts.DeleteWhere(func(c domain.Cart) bool { return c.UserID == id })
		return nil
	})
	if err != nil {
		return domain.User{}, notFound("user", id, err)
	}
	if s.carts != nil {
		s.carts.Drop(ctx, id)
	}

	s.log.Info("user deleted", zap.String("user_id", id))
	return removed, nil
}

func (s *UserService) ChangePassword(_ context.Context, id, current, next string) error {
	u, err := s.store.Users.FindByID(id)
	if err != nil {
		return notFound("user", id, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return &domain.Error{Kind: domain.ErrUnauthorized, Message: "current password is incorrect"}
	}
	if current == next {
		return domain.Invalid("new password must differ from the current one")
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}

	_, err = s.store.Users.Update(id, func(u *domain.User) error {
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return notFound("user", id, err)
	}
	return nil
}
