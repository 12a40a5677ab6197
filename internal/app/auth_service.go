package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"constitution-gpt/internal/model"
	"constitution-gpt/internal/pkg/jwtutil"
	"constitution-gpt/internal/pkg/password"
	"constitution-gpt/internal/repository"
)

const minPasswordLength = 8

type AuthErrorKind int

const (
	AuthInvalidCredentials AuthErrorKind = iota + 1
	AuthTokenExpired
	AuthTokenRevoked
	AuthInvalidTokenType
	AuthInvalidToken
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthInvalidCredentials:
		return "invalid credentials"
	case AuthTokenExpired:
		return "token expired"
	case AuthTokenRevoked:
		return "token revoked"
	case AuthInvalidTokenType:
		return "invalid token type"
	default:
		return "invalid token"
	}
}

// AuthError is returned by every authentication failure. Handlers collapse
// all kinds into one generic response.
type AuthError struct {
	Kind AuthErrorKind
}

func (e *AuthError) Error() string { return e.Kind.String() }

func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

var (
	ErrInvalidCredential = &AuthError{Kind: AuthInvalidCredentials}
	ErrTokenExpired      = &AuthError{Kind: AuthTokenExpired}
	ErrTokenRevoked      = &AuthError{Kind: AuthTokenRevoked}
	ErrInvalidTokenType  = &AuthError{Kind: AuthInvalidTokenType}
	ErrInvalidToken      = &AuthError{Kind: AuthInvalidToken}

	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	// ErrSessionLost means the old refresh row was consumed but no new pair
	// could be issued. The client has to log in again.
	ErrSessionLost = errors.New("refresh session lost")
)

// IsAuthError reports whether err is any authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, userID uint, hash string) error
}

type RefreshSessionStore interface {
	Create(ctx context.Context, session *model.RefreshSession) error
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteByUserID(ctx context.Context, userID uint) error
}

type AuthOptions struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
	Now           func() time.Time
}

type AuthService struct {
	users    UserStore
	sessions RefreshSessionStore
	opts     AuthOptions
	logger   *zap.Logger
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	Phone    string
	Address  string
	City     string
}

type LoginInput struct {
	// Identifier is a username or an email address.
	Identifier string
	Password   string
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type AuthResult struct {
	TokenPair
	User *model.User `json:"user"`
}

func NewAuthService(users UserStore, sessions RefreshSessionStore, opts AuthOptions, logger *zap.Logger) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, sessions: sessions, opts: opts, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	plain := strings.TrimSpace(input.Password)

	if username == "" || email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if len(plain) < minPasswordLength {
		return nil, invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	role, err := model.ParseRole(input.Role)
	if err != nil {
		return nil, invalidField("role", err.Error())
	}
	if role != model.RoleUser && role != model.RoleLawyer {
		return nil, invalidField("role", "only user or lawyer accounts can be registered")
	}

	existingByName, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := password.Hash(plain, s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
		City:         strings.TrimSpace(input.City),
		// lawyers wait for an admin before they show up in the directory
		IsVerified: role != model.RoleLawyer,
		IsActive:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	plain := strings.TrimSpace(input.Password)
	if identifier == "" || plain == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, identifier, strings.ToLower(identifier))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredential
	}
	if err := password.Compare(user.PasswordHash, plain); err != nil {
		return nil, ErrInvalidCredential
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{TokenPair: *pair, User: user}, nil
}

// Refresh rotates a refresh token. The stored row is consumed before the new
// pair is minted, so a token can be redeemed at most once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := jwtutil.ParseRefreshToken(s.opts.RefreshSecret, refreshToken, s.opts.Now())
	if err != nil {
		return nil, classifyTokenError(err)
	}

	removed, err := s.sessions.DeleteByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !removed {
		s.logger.Warn("refresh token reuse or unknown token", zap.Uint("user_id", claims.UserID))
		return nil, ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrTokenRevoked
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		s.logger.Error("reissue after rotation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return pair, nil
}

// Verify checks signature and expiry of an access token. It never touches
// storage.
func (s *AuthService) Verify(accessToken string) (*jwtutil.AccessClaims, bool) {
	claims, err := jwtutil.ParseAccessToken(s.opts.AccessSecret, accessToken, s.opts.Now())
	if err != nil {
		return nil, false
	}
	return claims, true
}

// Logout drops the refresh row. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidInput
	}
	_, err := s.sessions.DeleteByToken(ctx, refreshToken)
	return err
}

// ChangePassword also revokes every refresh session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if userID == 0 || current == "" {
		return ErrInvalidInput
	}
	if len(strings.TrimSpace(next)) < minPasswordLength {
		return invalidField("new_password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if err := password.Compare(user.PasswordHash, strings.TrimSpace(current)); err != nil {
		return ErrInvalidCredential
	}
	hash, err := password.Hash(strings.TrimSpace(next), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	return s.sessions.DeleteByUserID(ctx, userID)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*TokenPair, error) {
	now := s.opts.Now()
	access, accessExp, err := jwtutil.GenerateAccessToken(s.opts.AccessSecret, now, s.opts.AccessTTL, jwtutil.AccessSubject{
		UserID:     user.ID,
		Username:   user.Username,
		Role:       string(user.Role),
		IsVerified: user.IsVerified,
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := jwtutil.GenerateRefreshToken(s.opts.RefreshSecret, now, s.opts.RefreshTTL, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, &model.RefreshSession{
		UserID:    user.ID,
		Token:     refresh,
		CreatedAt: now,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwtutil.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwtutil.ErrWrongType):
		return ErrInvalidTokenType
	default:
		return ErrInvalidToken
	}
}

// CreateAdmin provisions an administrator account. It is reachable from the
// command line only.
func (s *AuthService) CreateAdmin(ctx context.Context, username, email, plain string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	plain = strings.TrimSpace(plain)
	if username == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	if len(plain) < minPasswordLength {
		return nil, invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	hash, err := password.Hash(plain, s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsVerified:   true,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}
	s.logger.Info("admin created", zap.Uint("user_id", user.ID))
	return user, nil
}

// ResetPassword sets a new password without the current one and revokes the
// user's refresh sessions.
func (s *AuthService) ResetPassword(ctx context.Context, identifier, next string) error {
	identifier = strings.TrimSpace(identifier)
	next = strings.TrimSpace(next)
	if identifier == "" {
		return ErrInvalidInput
	}
	if len(next) < minPasswordLength {
		return invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	user, err := s.users.GetByUsernameOrEmail(ctx, identifier, strings.ToLower(identifier))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	hash, err := password.Hash(next, s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.Uint("user_id", user.ID))
	return s.sessions.DeleteByUserID(ctx, user.ID)
}
