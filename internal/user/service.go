package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/confirmation"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", apperr.ErrUnauthorized)

type Service interface {
	Register(ctx context.Context, registration Registration) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetProfile(ctx context.Context, caller access.Caller) (*User, error)
	UpdateProfile(ctx context.Context, caller access.Caller, update ProfileUpdate) (*User, error)
}

type service struct {
	repo          Repository
	confirmations confirmation.Service
}

func NewService(repo Repository, confirmations confirmation.Service) Service {
	return &service{repo: repo, confirmations: confirmations}
}

// Register создаёт пользователя и выпускает код подтверждения почты.
func (s *service) Register(ctx context.Context, registration Registration) (*User, error) {
	if registration.Password == "" {
		return nil, apperr.NewValidationError(map[string]string{"password": "is required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: hash password: %w", err)
	}

	u := &User{
		Username:     strings.TrimSpace(registration.Username),
		FirstName:    strings.TrimSpace(registration.FirstName),
		LastName:     strings.TrimSpace(registration.LastName),
		Email:        strings.ToLower(strings.TrimSpace(registration.Email)),
		PasswordHash: string(hash),
		IsStaff:      registration.Staff,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		log.Error().Err(err).Str("username", u.Username).Msg("service: failed to create user")
		return nil, fmt.Errorf("service: register: %w", err)
	}

	_, err = s.confirmations.Issue(ctx, confirmation.Recipient{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	})
	if err != nil {
		// аккаунт без кода подтверждения удаляется, регистрацию можно повторить
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), u.ID); delErr != nil {
			log.Error().Err(delErr).Int64("user_id", u.ID).Msg("service: failed to remove user after confirmation failure")
		}
		return nil, fmt.Errorf("service: register user %d: %w", u.ID, err)
	}

	log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("User registered")
	return u, nil
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to load user for login")
		return nil, fmt.Errorf("service: authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Int64("user_id", u.ID).Msg("Password mismatch")
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *service) GetProfile(ctx context.Context, caller access.Caller) (*User, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	u, err := s.repo.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: get profile %d: %w", caller.UserID, err)
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, caller access.Caller, update ProfileUpdate) (*User, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	update.Image = strings.TrimSpace(update.Image)

	u, err := s.repo.UpdateProfile(ctx, caller.UserID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int64("user_id", caller.UserID).Msg("service: failed to update profile")
		return nil, fmt.Errorf("service: update profile %d: %w", caller.UserID, err)
	}
	return u, nil
}
