// Package service implements the application's business rules on top of the
// repository layer.
package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"wendle/internal/models"
	"wendle/internal/repository"
)

const (
	minPasswordLen = 6
	tokenLifetime  = 72 * time.Hour
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

type AuthService struct {
	profileRepo repository.ProfileRepository
	jwtSecret   string
}

type SignupInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

func NewAuthService(profileRepo repository.ProfileRepository, jwtSecret string) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		jwtSecret:   jwtSecret,
	}
}

// Signup registers a profile. Usernames are lowercased before validation so
// "Mara" and "mara" are the same account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.Profile, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !usernamePattern.MatchString(username) {
		return nil, models.NewValidationError("Username must be 3-30 characters of a-z, 0-9 or _")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return nil, models.NewValidationError("Password must be at least 6 characters")
	}

	if _, err := s.profileRepo.GetByUsernameWithPassword(ctx, username); err == nil {
		return nil, models.NewConflictError("Username is already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	profile := &models.Profile{
		Username:    username,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(in.Username),
	}
	if profile.DisplayName == "" {
		profile.DisplayName = username
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, *models.Profile, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))

	profile, err := s.profileRepo.GetByUsernameWithPassword(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, models.NewNotAuthenticatedError("Invalid username or password")
		}
		return "", nil, models.NewInternalError(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(in.Password)) != nil {
		return "", nil, models.NewNotAuthenticatedError("Invalid username or password")
	}

	token, err := s.IssueToken(profile.ID)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return token, profile, nil
}

// IssueToken signs a token whose subject is the profile ID.
func (s *AuthService) IssueToken(profileID uint) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(profileID), 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
