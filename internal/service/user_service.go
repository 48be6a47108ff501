package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/queueless/booking/internal/model"
)

const (
	minPasswordLength = 6

	// refreshKeyPrefix отделяет refresh токены от токенов доступа в общем хранилище сессий
	refreshKeyPrefix = "refresh:"
)

// TokenTTL время жизни токенов сессии
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// Tokens пара токенов, выдаваемая при входе и обновлении
type Tokens struct {
	Access  string
	Refresh string
}

type UserService struct {
	userRepo UserStore
	sessions SessionStore
	cache    *lru.Cache[uuid.UUID, *model.User]
	ttl      TokenTTL
	logger   *zap.Logger
}

func NewUserService(userRepo UserStore, sessions SessionStore, cacheSize int, ttl TokenTTL, logger *zap.Logger) (*UserService, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[uuid.UUID, *model.User](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create user cache: %w", err)
	}

	if ttl.Refresh < ttl.Access {
		ttl.Refresh = ttl.Access
	}

	return &UserService{
		userRepo: userRepo,
		sessions: sessions,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// RefreshTTL время жизни refresh токена, нужно для cookie
func (s *UserService) RefreshTTL() time.Duration {
	return s.ttl.Refresh
}

// Register регистрирует пользователя с ролью USER
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}

	return s.create(ctx, name, email, password, model.RoleUser)
}

// Login проверяет пароль и открывает сессию
func (s *UserService) Login(ctx context.Context, email, password string) (Tokens, *model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Tokens{}, nil, model.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Tokens{}, nil, model.ErrInvalidCredentials
		}
		return Tokens{}, nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Tokens{}, nil, model.ErrInvalidCredentials
	}

	tokens, err := s.issue(ctx, user.ID)
	if err != nil {
		return Tokens{}, nil, err
	}

	s.cache.Add(user.ID, user)
	s.logger.Info("User logged in", zap.Stringer("user_id", user.ID))

	return tokens, user, nil
}

// Refresh меняет refresh токен на новую пару. Старый refresh токен погашается.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (Tokens, *model.User, error) {
	if refreshToken == "" {
		return Tokens{}, nil, model.ErrUnauthenticated
	}

	userID, err := s.sessions.Get(ctx, refreshKeyPrefix+refreshToken)
	if err != nil {
		return Tokens{}, nil, err
	}
	if err := s.sessions.Delete(ctx, refreshKeyPrefix+refreshToken); err != nil {
		return Tokens{}, nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Tokens{}, nil, model.ErrUnauthenticated
		}
		return Tokens{}, nil, err
	}

	tokens, err := s.issue(ctx, user.ID)
	if err != nil {
		return Tokens{}, nil, err
	}

	s.logger.Debug("Session refreshed", zap.Stringer("user_id", user.ID))
	return tokens, user, nil
}

// Logout гасит токен доступа и, если передан, refresh токен
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.sessions.Delete(ctx, accessToken); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Delete(ctx, refreshKeyPrefix+refreshToken)
}

func (s *UserService) issue(ctx context.Context, userID uuid.UUID) (Tokens, error) {
	tokens := Tokens{Access: uuid.NewString(), Refresh: uuid.NewString()}

	if err := s.sessions.Save(ctx, tokens.Access, userID, s.ttl.Access); err != nil {
		return Tokens{}, err
	}
	if err := s.sessions.Save(ctx, refreshKeyPrefix+tokens.Refresh, userID, s.ttl.Refresh); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

// Authenticate возвращает владельца токена
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" || strings.HasPrefix(token, refreshKeyPrefix) {
		return nil, model.ErrUnauthenticated
	}

	userID, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// GetByID получает пользователя по ID через кэш
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if user, ok := s.cache.Get(id); ok {
		return user, nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, user)
	return user, nil
}

// EnsureAdmin создаёт администратора или повышает существующего пользователя
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return existing, nil
		}
		if err := s.userRepo.UpdateRole(ctx, existing.ID, model.RoleAdmin); err != nil {
			return nil, fmt.Errorf("update role: %w", err)
		}
		s.cache.Remove(existing.ID)
		existing.Role = model.RoleAdmin

		s.logger.Info("User promoted to admin", zap.Stringer("user_id", existing.ID))
		return existing, nil
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("get user: %w", err)
	}

	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: admin password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	return s.create(ctx, strings.TrimSpace(name), email, password, model.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Provider:     model.ProviderLocal,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Stringer("user_id", user.ID),
		zap.String("role", string(role)),
	)
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email", model.ErrValidation)
	}
	return email, nil
}
