package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/freebites/internal/persistence"
)

// UserRepository captures the persistence operations needed by the service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, codeHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	CountUsers(ctx context.Context) (int, error)
}

// UserInput captures caller provided account attributes.
type UserInput struct {
	Email      string
	AccessCode string
	Role       Role
}

// CreateUserParams wraps the data required to provision an account.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// CodeHasher hashes an access code for storage.
type CodeHasher func(code string) (string, error)

// UserService provisions accounts. Accounts are immutable after creation.
type UserService struct {
	users       UserRepository
	hashCode    CodeHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users UserRepository, hashCode CodeHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hashCode, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hashCode CodeHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hashCode == nil {
		hashCode = func(code string) (string, error) {
			return CreateCodeHash(code, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashCode: hashCode, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser provisions a new account for organizers.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !params.Principal.IsOrganizer() {
		err = ErrUnauthorized
		return
	}

	return s.createUser(ctx, params.Input, "CreateUser", params.Principal.UserID)
}

// Bootstrap provisions an initial account when the store holds none. It is
// invoked at startup so a fresh deployment has an organizer to log in with.
func (s *UserService) Bootstrap(ctx context.Context, input UserInput) (user User, created bool, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	var count int
	count, err = s.users.CountUsers(ctx)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	if count > 0 {
		return
	}

	user, err = s.createUser(ctx, input, "Bootstrap", "")
	if err != nil {
		return
	}
	created = true
	return
}

func (s *UserService) createUser(ctx context.Context, input UserInput, operation, principalID string) (user User, err error) {
	logger := s.loggerWith(ctx, operation,
		"principal_id", principalID,
		"email", strings.TrimSpace(strings.ToLower(input.Email)),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	vErr := validateUserInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashCode(input.AccessCode)
	if err != nil {
		return
	}

	user = User{
		ID:        s.idGenerator(),
		Email:     strings.TrimSpace(strings.ToLower(input.Email)),
		Role:      input.Role,
		CreatedAt: s.now(),
	}

	if s.users == nil {
		return
	}

	var persisted User
	persisted, err = s.users.CreateUser(ctx, user, hash)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	user = persisted
	return
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not a valid address")
	}

	if strings.TrimSpace(input.AccessCode) == "" {
		vErr.add("access_code", "access code is required")
	}

	if input.Role != RoleOrganizer && input.Role != RoleStudent {
		vErr.add("role", "role must be organizer or student")
	}

	return vErr
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("email", "account fields violate a storage constraint")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
