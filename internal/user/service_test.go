package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/confirmation"
	"github.com/vasiliy-maslov/store-market/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int64, update user.ProfileUpdate) (*user.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockConfirmationService struct {
	mock.Mock
}

func (m *MockConfirmationService) Issue(ctx context.Context, recipient confirmation.Recipient) (*confirmation.Token, error) {
	args := m.Called(ctx, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*confirmation.Token), args.Error(1)
}

func (m *MockConfirmationService) Confirm(ctx context.Context, code uuid.UUID) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func TestUserService_Register_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockConfirmations := new(MockConfirmationService)
	svc := user.NewService(mockRepo, mockConfirmations)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).ID = 11
		}).
		Return(nil).
		Once()
	mockConfirmations.On("Issue", mock.Anything, confirmation.Recipient{
		UserID:   11,
		Username: "ivan",
		Email:    "ivan@example.com",
	}).Return(&confirmation.Token{UserID: 11}, nil).Once()

	created, err := svc.Register(context.Background(), user.Registration{
		Username:  " ivan ",
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "Ivan@Example.com",
		Password:  "secret-password",
	})
	require.NoError(t, err)

	want := &user.User{ID: 11, Username: "ivan", FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com"}
	if diff := cmp.Diff(want, created, cmpopts.IgnoreFields(user.User{}, "PasswordHash")); diff != "" {
		t.Errorf("Register() mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret-password")))
	assert.False(t, created.IsVerified)

	mockRepo.AssertExpectations(t)
	mockConfirmations.AssertExpectations(t)
}

func TestUserService_Register_Duplicate(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockConfirmations := new(MockConfirmationService)
	svc := user.NewService(mockRepo, mockConfirmations)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).Return(user.ErrUserExists).Once()

	_, err := svc.Register(context.Background(), user.Registration{Username: "ivan", Email: "ivan@example.com", Password: "secret-password"})
	require.ErrorIs(t, err, user.ErrUserExists)
	require.ErrorIs(t, err, apperr.ErrConflict)
	mockConfirmations.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestUserService_Register_EmptyPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := user.NewService(mockRepo, new(MockConfirmationService))

	_, err := svc.Register(context.Background(), user.Registration{Username: "ivan"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Register_ConfirmationFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockConfirmations := new(MockConfirmationService)
	svc := user.NewService(mockRepo, mockConfirmations)

	issueErr := errors.New("insert failed")
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).ID = 12
		}).
		Return(nil).
		Once()
	mockConfirmations.On("Issue", mock.Anything, mock.Anything).Return(nil, issueErr).Once()
	mockRepo.On("Delete", mock.Anything, int64(12)).Return(nil).Once()

	_, err := svc.Register(context.Background(), user.Registration{Username: "ivan", Email: "ivan@example.com", Password: "secret-password"})
	require.ErrorIs(t, err, issueErr)

	mockRepo.AssertExpectations(t)
	mockConfirmations.AssertExpectations(t)
}

func TestUserService_Register_RetryAfterConfirmationFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockConfirmations := new(MockConfirmationService)
	svc := user.NewService(mockRepo, mockConfirmations)

	registration := user.Registration{Username: "ivan", Email: "ivan@example.com", Password: "secret-password"}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).ID = 12
		}).
		Return(nil).
		Once()
	mockConfirmations.On("Issue", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed")).Once()
	mockRepo.On("Delete", mock.Anything, int64(12)).Return(nil).Once()

	_, err := svc.Register(context.Background(), registration)
	require.Error(t, err)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).ID = 13
		}).
		Return(nil).
		Once()
	mockConfirmations.On("Issue", mock.Anything, mock.Anything).Return(&confirmation.Token{UserID: 13}, nil).Once()

	created, err := svc.Register(context.Background(), registration)
	require.NoError(t, err)
	assert.Equal(t, int64(13), created.ID)

	mockRepo.AssertExpectations(t)
	mockConfirmations.AssertExpectations(t)
}

func TestUserService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &user.User{ID: 3, Username: "ivan", PasswordHash: string(hash), IsStaff: true}

	tests := []struct {
		name     string
		username string
		password string
		repoUser *user.User
		repoErr  error
		wantErr  error
	}{
		{name: "success", username: "ivan", password: "secret-password", repoUser: stored},
		{name: "wrong_password", username: "ivan", password: "nope", repoUser: stored, wantErr: user.ErrInvalidCredentials},
		{name: "unknown_user", username: "ghost", password: "secret-password", repoErr: user.ErrNotFound, wantErr: user.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			svc := user.NewService(mockRepo, new(MockConfirmationService))

			if tt.repoUser != nil {
				mockRepo.On("GetByUsername", mock.Anything, tt.username).Return(tt.repoUser, nil).Once()
			} else {
				mockRepo.On("GetByUsername", mock.Anything, tt.username).Return(nil, tt.repoErr).Once()
			}

			got, err := svc.Authenticate(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, apperr.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(3), got.ID)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := user.NewService(mockRepo, new(MockConfirmationService))

	update := user.ProfileUpdate{FirstName: "Ivan", LastName: "Sidorov", Image: "avatars/ivan.png"}
	mockRepo.On("UpdateProfile", mock.Anything, int64(3), update).
		Return(&user.User{ID: 3, FirstName: "Ivan", LastName: "Sidorov", Image: "avatars/ivan.png"}, nil).
		Once()

	got, err := svc.UpdateProfile(context.Background(), access.Caller{UserID: 3}, user.ProfileUpdate{
		FirstName: " Ivan ",
		LastName:  "Sidorov",
		Image:     "avatars/ivan.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sidorov", got.LastName)
	mockRepo.AssertExpectations(t)

	_, err = svc.UpdateProfile(context.Background(), access.Caller{}, update)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := user.NewService(mockRepo, new(MockConfirmationService))

	mockRepo.On("GetByID", mock.Anything, int64(3)).Return(nil, user.ErrNotFound).Once()

	_, err := svc.GetProfile(context.Background(), access.Caller{UserID: 3})
	require.ErrorIs(t, err, user.ErrNotFound)
	mockRepo.AssertExpectations(t)
}
