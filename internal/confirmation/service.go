package confirmation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/mailer"
)

const (
	DefaultTTL   = 10 * time.Minute
	emailSubject = "Verification"
)

var emailTemplate = template.Must(template.New("verification").Parse(
	`Welcome, {{.Username}}!
Thanks for signing up with Store market!
You must follow this link to activate your account:
{{.Link}}
`))

// Verifier помечает пользователя подтверждённым. Реализуется репозиторием пользователей.
type Verifier interface {
	MarkVerified(ctx context.Context, userID int64) error
}

type Service interface {
	Issue(ctx context.Context, recipient Recipient) (*Token, error)
	Confirm(ctx context.Context, code uuid.UUID) error
}

type Options struct {
	TTL        time.Duration
	DomainName string
	From       string
	Now        func() time.Time
}

type service struct {
	repo     Repository
	verifier Verifier
	mailer   mailer.Mailer
	opts     Options
}

func NewService(repo Repository, verifier Verifier, m mailer.Mailer, opts Options) Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !strings.HasSuffix(opts.DomainName, "/") {
		opts.DomainName += "/"
	}
	return &service{repo: repo, verifier: verifier, mailer: m, opts: opts}
}

// ConfirmationLink - адрес, по которому пользователь подтверждает почту.
func ConfirmationLink(domainName string, code uuid.UUID) string {
	return domainName + "users/confirm-email/" + code.String()
}

// Issue сохраняет новый код и отправляет письмо. Ошибка отправки только логируется.
func (s *service) Issue(ctx context.Context, recipient Recipient) (*Token, error) {
	code, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: generate confirmation code: %w", err)
	}

	now := s.opts.Now().UTC()
	token := &Token{
		Code:      code,
		UserID:    recipient.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}

	if err := s.repo.Create(ctx, token); err != nil {
		log.Error().Err(err).Int64("user_id", recipient.UserID).Msg("service: failed to store confirmation code")
		return nil, fmt.Errorf("service: issue confirmation: %w", err)
	}

	var body bytes.Buffer
	err = emailTemplate.Execute(&body, struct {
		Username string
		Link     string
	}{
		Username: recipient.Username,
		Link:     ConfirmationLink(s.opts.DomainName, code),
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", recipient.UserID).Msg("Failed to render verification email")
		return token, nil
	}

	msg := mailer.Message{
		From:    s.opts.From,
		To:      recipient.Email,
		Subject: emailSubject,
		Body:    body.String(),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Int64("user_id", recipient.UserID).Str("email", recipient.Email).Msg("Failed to send verification email")
	}

	return token, nil
}

// Confirm подтверждает почту. Повторное подтверждение действующим кодом ничего не меняет.
func (s *service) Confirm(ctx context.Context, code uuid.UUID) error {
	token, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		log.Error().Err(err).Stringer("code", code).Msg("service: failed to load confirmation code")
		return fmt.Errorf("service: confirm: %w", err)
	}

	if token.Expired(s.opts.Now()) {
		log.Info().Stringer("code", code).Int64("user_id", token.UserID).Msg("Confirmation code expired")
		return ErrTokenExpired
	}

	if err := s.verifier.MarkVerified(ctx, token.UserID); err != nil {
		log.Error().Err(err).Int64("user_id", token.UserID).Msg("service: failed to mark user verified")
		return fmt.Errorf("service: confirm user %d: %w", token.UserID, err)
	}

	log.Info().Int64("user_id", token.UserID).Msg("Email confirmed")
	return nil
}
