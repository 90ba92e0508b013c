package access

import (
	"context"

	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDestroy  Action = "destroy"
)

// Caller - уже аутентифицированный пользователь. Нулевое значение означает анонима.
type Caller struct {
	UserID int64
	Staff  bool
}

func (c Caller) Authenticated() bool {
	return c.UserID > 0
}

// Authorize решает, может ли caller выполнить действие над ресурсами API.
func Authorize(caller Caller, action Action) error {
	if !caller.Authenticated() {
		return apperr.ErrUnauthorized
	}

	switch action {
	case ActionCreate, ActionUpdate, ActionDestroy:
		if !caller.Staff {
			return apperr.ErrForbidden
		}
	}

	return nil
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) Caller {
	caller, _ := ctx.Value(callerKey{}).(Caller)
	return caller
}
