package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"todoapp/internal/logger"
	"todoapp/internal/model"
	"todoapp/internal/password"
	"todoapp/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9+._%\-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9\-]{0,64}(\.[a-zA-Z0-9][a-zA-Z0-9\-]{0,25})+$`)

// AuthService signs users up and checks their credentials.
type AuthService struct {
	userRepo *repository.UserRepository
	cost     int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(userRepo *repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// SignupInput mirrors the signup form. The email doubles as the username.
type SignupInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

func (in SignupInput) Validate() error {
	if !emailPattern.MatchString(strings.TrimSpace(in.Email)) {
		return ErrInvalidEmail
	}
	if !strongPassword(in.Password) {
		return ErrWeakPassword
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func strongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var digit, upper bool
	for _, r := range p {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	return digit && upper
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*model.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)

	_, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	hash, err := password.Hash(input.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{Username: email, Email: email, PasswordHash: string(hash)}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		return nil, err
	}
	logger.Info("user signed up", zap.Uint("user_id", user.ID))
	return &user, nil
}

// Login returns the account whose username and password match exactly.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, plain string) (*model.User, error) {
	users, err := s.userRepo.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].PasswordHash == "" {
			continue
		}
		if password.Compare([]byte(users[i].PasswordHash), plain) == nil {
			return &users[i], nil
		}
	}
	if len(users) == 0 {
		// Spend the same time as a real comparison.
		_ = password.Compare(s.dummy(), plain)
	}
	return nil, ErrInvalidCredentials
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = password.Hash("no-such-user", s.cost)
	})
	return s.dummyHash
}
