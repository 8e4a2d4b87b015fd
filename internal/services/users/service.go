package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/PackBox/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type Repository interface {
	InsertUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service is the credential collaborator: registration, password login and
// bearer-token parsing. Nothing else in the system touches password hashes.
type Service struct {
	repo      Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *slog.Logger
}

func New(repo Repository, jwtSecret string, tokenTTL time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL, log: log}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*models.Identity, error) {
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email and password are required")
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrap(models.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u, err := s.repo.InsertUser(ctx, name, email, string(hash))
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "email", email)
	return &models.Identity{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Identity, error) {
	u, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, errors.Wrap(models.ErrUnauthorized, "invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, errors.Wrap(models.ErrUnauthorized, "invalid email or password")
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID.String(),
		"email": u.Email,
		"name":  u.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, errors.Wrap(err, "sign token")
	}
	return signed, &models.Identity{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// Profile re-reads the identity from storage. Token claims can lag behind a
// rename, so the profile endpoint goes to the source of truth.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	u, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.Wrap(models.ErrNotFound, "user not found")
	}
	return &models.Identity{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// ParseToken validates a bearer token and returns the identity baked into it.
func (s *Service) ParseToken(tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errors.Wrap(models.ErrUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Wrap(models.ErrUnauthorized, "invalid claims")
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.Wrap(models.ErrUnauthorized, "invalid subject")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &models.Identity{ID: id, Email: email, Name: name}, nil
}
