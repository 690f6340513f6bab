package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mist/datasteward/internal/platform/auth"
)

var (
	ErrEmailTaken         = fmt.Errorf("email already registered")
	ErrInvalidCredentials = fmt.Errorf("incorrect email or password")
	ErrTooManyAttempts    = fmt.Errorf("too many login attempts, try again later")
)

type Service struct {
	users   UserRepository
	issuer  *auth.TokenIssuer
	limiter *auth.LoginLimiter
}

func NewService(users UserRepository, issuer *auth.TokenIssuer, limiter *auth.LoginLimiter) *Service {
	return &Service{users: users, issuer: issuer, limiter: limiter}
}

// Register creates a user account. Admin accounts cannot be self-registered;
// they are provisioned through the CLI.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if req.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if req.Role == "" {
		req.Role = RolePatient
	}
	if req.Role == RoleAdmin || !ValidRole(req.Role) {
		return nil, fmt.Errorf("role must be %q or %q", RolePatient, RoleBuyer)
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		Organization: req.Organization,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// Login verifies credentials and issues an access token. Attempts are rate
// limited per client IP.
func (s *Service) Login(ctx context.Context, ip string, req *LoginRequest) (*TokenResponse, error) {
	if s.limiter != nil && !s.limiter.Allow(ip) {
		return nil, ErrTooManyAttempts
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// UpdateProfile applies the self-editable fields to the current user.
func (s *Service) UpdateProfile(ctx context.Context, email string, req *UpdateProfileRequest) (*User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		if *req.FullName == "" {
			return nil, fmt.Errorf("full_name must not be empty")
		}
		u.FullName = *req.FullName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Organization != nil {
		u.Organization = req.Organization
	}
	if req.ResearchInterests != nil {
		u.ResearchInterests = req.ResearchInterests
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}
