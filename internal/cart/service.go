package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

type Service interface {
	AddToCart(ctx context.Context, caller access.Caller, productID int64) (*Line, error)
	RemoveLine(ctx context.Context, caller access.Caller, lineID int64) error
	Summary(ctx context.Context, caller access.Caller) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddToCart(ctx context.Context, caller access.Caller, productID int64) (*Line, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	line, err := s.repo.AddProduct(ctx, caller.UserID, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Int64("user_id", caller.UserID).Int64("product_id", productID).Msg("service: failed to add product to cart")
		return nil, fmt.Errorf("service: add product %d to cart: %w", productID, err)
	}

	log.Debug().Int64("user_id", caller.UserID).Int64("product_id", productID).Int("quantity", line.Quantity).Msg("Product added to cart")
	return line, nil
}

func (s *service) RemoveLine(ctx context.Context, caller access.Caller, lineID int64) error {
	if !caller.Authenticated() {
		return apperr.ErrUnauthorized
	}

	if err := s.repo.DeleteLine(ctx, caller.UserID, lineID); err != nil {
		log.Error().Err(err).Int64("user_id", caller.UserID).Int64("line_id", lineID).Msg("service: failed to remove cart line")
		return fmt.Errorf("service: remove cart line %d: %w", lineID, err)
	}
	return nil
}

func (s *service) Summary(ctx context.Context, caller access.Caller) (*Summary, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	lines, err := s.repo.ListLines(ctx, caller.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", caller.UserID).Msg("service: failed to list cart lines")
		return nil, fmt.Errorf("service: cart summary: %w", err)
	}
	return NewSummary(lines), nil
}
