package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/cart"
)

type Service interface {
	Checkout(ctx context.Context, caller access.Caller, recipient Recipient) (*Order, error)
	ListOrders(ctx context.Context, caller access.Caller) ([]Order, error)
	GetOrder(ctx context.Context, caller access.Caller, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, caller access.Caller, id int64, status Status) error
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: apperr.NewValidator(),
	}
}

func normalizeRecipient(r Recipient) Recipient {
	return Recipient{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.TrimSpace(r.Email),
		Address:   strings.TrimSpace(r.Address),
	}
}

// Checkout превращает корзину пользователя в заказ: либо ровно один заказ и пустая корзина, либо ничего.
func (s *service) Checkout(ctx context.Context, caller access.Caller, recipient Recipient) (*Order, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	recipient = normalizeRecipient(recipient)
	if err := s.validate.Struct(recipient); err != nil {
		return nil, apperr.FromValidator(err)
	}

	userID := caller.UserID
	placed, err := s.repo.PlaceOrder(ctx, userID, func(lines []cart.Line) (*Order, error) {
		if len(lines) == 0 {
			return nil, ErrEmptyCart
		}
		total := cart.TotalPrice(lines)
		return &Order{
			Recipient:  recipient,
			UserID:     &userID,
			Status:     StatusAccepted,
			Items:      cart.Serialize(lines),
			ToPay:      toWholeUnits(total),
			ToPayMinor: toMinorUnits(total),
		}, nil
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			return nil, ErrEmptyCart
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("service: checkout failed")
		return nil, fmt.Errorf("service: checkout: %w", err)
	}

	log.Info().Int64("user_id", userID).Int64("order_id", placed.ID).Int64("to_pay", placed.ToPay).Msg("Order placed")
	return placed, nil
}

func (s *service) ListOrders(ctx context.Context, caller access.Caller) ([]Order, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	orders, err := s.repo.ListByUser(ctx, caller.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", caller.UserID).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: list orders: %w", err)
	}
	return orders, nil
}

// GetOrder отдаёт заказ владельцу или персоналу. Чужой заказ выглядит как несуществующий.
func (s *service) GetOrder(ctx context.Context, caller access.Caller, id int64) (*Order, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Int64("order_id", id).Msg("service: failed to get order")
		return nil, fmt.Errorf("service: get order %d: %w", id, err)
	}

	if !caller.Staff && (o.UserID == nil || *o.UserID != caller.UserID) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// UpdateStatus - административная смена статуса. Порядок переходов не проверяется.
func (s *service) UpdateStatus(ctx context.Context, caller access.Caller, id int64, status Status) error {
	if err := access.Authorize(caller, access.ActionUpdate); err != nil {
		return err
	}
	if !status.Valid() {
		return apperr.NewValidationError(map[string]string{"status": "must be one of [0 1 2 3]"})
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: update status of order %d: %w", id, err)
	}

	log.Info().Int64("order_id", id).Stringer("status", status).Int64("by_user_id", caller.UserID).Msg("Order status changed")
	return nil
}
