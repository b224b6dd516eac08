package service

import (
	"context"
	"fmt"
	"time"

	"nota/internal/domain"
	"nota/internal/repository"
	"nota/pkg/csrf"
	"nota/pkg/hash"
	"nota/pkg/jwt"

	"github.com/google/uuid"
)

type AuthService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExp time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExp,
	}
}

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) error {
	exists, err := s.userRepo.UsernameExists(ctx, req.Username)
	if err != nil {
		return storageErr("failed to check username", err)
	}
	if exists {
		return conflictErr("Username already exists.")
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return validationErr(err.Error())
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return conflictErr("Username already exists.")
		}
		return storageErr("failed to create user", err)
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := hash.Compare(user.Password, req.Password); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	accessToken, err := jwt.GenerateToken(user.ID, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, storageErr("failed to generate access token", err)
	}

	return &domain.LoginResponse{
		Username:    user.Username,
		AccessToken: accessToken,
		CSRFToken:   csrf.Token(user.ID, s.jwtSecret),
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

// Session reports the authenticated state plus the CSRF token state-changing
// calls must echo back.
func (s *AuthService) Session(ctx context.Context, userID string) (*domain.SessionResponse, error) {
	if userID == "" {
		return &domain.SessionResponse{Authenticated: false}, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err, "User not found.", "failed to load user")
	}

	return &domain.SessionResponse{
		Authenticated: true,
		Username:      user.Username,
		CSRFToken:     csrf.Token(user.ID, s.jwtSecret),
	}, nil
}
