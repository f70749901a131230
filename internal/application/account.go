package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials неверный email или пароль
	ErrInvalidCredentials = errors.New("Usuario o contraseña incorrectos")
	// ErrUnauthorized токен отсутствует, просрочен или пользователь не найден
	ErrUnauthorized = errors.New("Credenciales inválidas")
	// ErrEmailTaken email уже зарегистрирован
	ErrEmailTaken = errors.New("Email ya registrado")
	// ErrWeakPassword пароль короче минимальной длины
	ErrWeakPassword = fmt.Errorf("La contraseña debe tener al menos %d caracteres", minPasswordLength)
)

// ValidationError ошибка входных данных, текст показывается пользователю
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AccountService регистрирует пользователей и выпускает токены доступа
type AccountService struct {
	users      port.UserRepository
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
	logger     zerolog.Logger
}

func NewAccountService(users port.UserRepository, secret string, tokenTTL time.Duration, bcryptCost int, logger zerolog.Logger) *AccountService {
	return &AccountService{
		users:      users,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     logger,
	}
}

// Register создаёт пользователя и сразу возвращает токен
func (s *AccountService) Register(ctx context.Context, email, password, name string) (string, *entity.User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return "", nil, &ValidationError{Message: err.Error()}
	}
	if len(password) < minPasswordLength {
		return "", nil, ErrWeakPassword
	}

	existing, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		return "", nil, ErrEmailTaken
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return "", nil, err
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, port.ErrAlreadyExists) {
			return "", nil, ErrEmailTaken
		}
		return "", nil, err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")

	token, err := s.issueToken(user.Email)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login проверяет пароль и возвращает токен
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user == nil || !user.IsActive || !s.checkPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user.Email)
}

// Authenticate разбирает токен и возвращает его владельца
func (s *AccountService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.UserByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *AccountService) issueToken(email string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Пароль сначала сворачивается в SHA-256: bcrypt учитывает только первые 72 байта.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (s *AccountService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AccountService) checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password)) == nil
}
