package confirmation

import (
	"time"

	"github.com/gofrs/uuid"
)

type Token struct {
	Code      uuid.UUID
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired - токен просрочен строго после ExpiresAt.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Recipient - кому отправляется письмо подтверждения.
type Recipient struct {
	UserID   int64
	Username string
	Email    string
}
