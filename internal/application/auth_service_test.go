package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type credentialStoreStub struct {
	creds    UserCredentials
	credsErr error

	user    User
	userErr error
}

func (s *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if s.credsErr != nil {
		return UserCredentials{}, s.credsErr
	}
	if s.creds.User.Email != email {
		return UserCredentials{}, ErrNotFound
	}
	return s.creds, nil
}

func (s *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if s.userErr != nil {
		return User{}, s.userErr
	}
	if s.user.ID != id {
		return User{}, ErrNotFound
	}
	return s.user, nil
}

type sessionRepoStub struct {
	createErr error
	created   Session

	session Session
	getErr  error

	revokeErr error
	revoked   string

	deleteErr     error
	deletedBefore time.Time
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.created = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	if s.session.Token != token {
		return Session{}, ErrNotFound
	}
	return s.session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	if s.session.Token != token {
		return Session{}, ErrNotFound
	}
	s.revoked = token
	revoked := s.session
	revoked.RevokedAt = &revokedAt
	return revoked, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedBefore = reference
	return nil
}

func passThroughVerifier(hash, code string) error {
	if hash != "hash:"+code {
		return ErrInvalidCredentials
	}
	return nil
}

func TestAuthService_Authenticate(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	student := User{ID: "stu-1", Email: "alice@campus.edu", Role: RoleStudent, CreatedAt: now}

	newService := func(store *credentialStoreStub, sessions *sessionRepoStub) *AuthService {
		return NewAuthService(store, sessions, passThroughVerifier,
			func() string { return "token-1" },
			func() time.Time { return now },
			24*time.Hour,
		)
	}

	t.Run("issues a session for valid credentials", func(t *testing.T) {
		sessions := &sessionRepoStub{}
		svc := newService(&credentialStoreStub{
			creds: UserCredentials{User: student, CodeHash: "hash:topsecret"},
		}, sessions)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:      " Alice@Campus.EDU ",
			AccessCode: "topsecret",
		})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if result.User.ID != "stu-1" {
			t.Fatalf("unexpected user: %#v", result.User)
		}
		if result.Session.Token != "token-1" {
			t.Fatalf("unexpected token: %q", result.Session.Token)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
			t.Fatalf("unexpected expiry: %v", result.Session.ExpiresAt)
		}
		if !sessions.deletedBefore.Equal(now) {
			t.Fatalf("expected expired sessions pruned at %v, got %v", now, sessions.deletedBefore)
		}
	})

	t.Run("rejects unknown accounts", func(t *testing.T) {
		svc := newService(&credentialStoreStub{}, &sessionRepoStub{})

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:      "nobody@campus.edu",
			AccessCode: "topsecret",
		})

		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects mismatched access codes", func(t *testing.T) {
		svc := newService(&credentialStoreStub{
			creds: UserCredentials{User: student, CodeHash: "hash:topsecret"},
		}, &sessionRepoStub{})

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:      "alice@campus.edu",
			AccessCode: "wrong",
		})

		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects blank input", func(t *testing.T) {
		svc := newService(&credentialStoreStub{}, &sessionRepoStub{})

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	student := User{ID: "stu-1", Email: "alice@campus.edu", Role: RoleStudent}

	newService := func(store *credentialStoreStub, sessions *sessionRepoStub) *AuthService {
		return NewAuthService(store, sessions, passThroughVerifier, nil,
			func() time.Time { return now },
			24*time.Hour,
		)
	}

	t.Run("returns the principal for an active session", func(t *testing.T) {
		svc := newService(
			&credentialStoreStub{user: student},
			&sessionRepoStub{session: Session{
				ID:        "session-1",
				UserID:    "stu-1",
				Token:     "token-1",
				ExpiresAt: now.Add(time.Hour),
			}},
		)

		principal, err := svc.ValidateSession(context.Background(), "token-1")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "stu-1" || principal.Role != RoleStudent {
			t.Fatalf("unexpected principal: %#v", principal)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		svc := newService(
			&credentialStoreStub{user: student},
			&sessionRepoStub{session: Session{
				ID:        "session-1",
				UserID:    "stu-1",
				Token:     "token-1",
				ExpiresAt: now.Add(-time.Minute),
			}},
		)

		_, err := svc.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		revoked := now.Add(-time.Minute)
		svc := newService(
			&credentialStoreStub{user: student},
			&sessionRepoStub{session: Session{
				ID:        "session-1",
				UserID:    "stu-1",
				Token:     "token-1",
				ExpiresAt: now.Add(time.Hour),
				RevokedAt: &revoked,
			}},
		)

		_, err := svc.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		svc := newService(&credentialStoreStub{user: student}, &sessionRepoStub{})

		_, err := svc.ValidateSession(context.Background(), "token-unknown")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects blank tokens", func(t *testing.T) {
		svc := newService(&credentialStoreStub{user: student}, &sessionRepoStub{})

		_, err := svc.ValidateSession(context.Background(), "   ")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

	t.Run("revokes an existing session", func(t *testing.T) {
		sessions := &sessionRepoStub{session: Session{
			ID:        "session-1",
			UserID:    "stu-1",
			Token:     "token-1",
			ExpiresAt: now.Add(time.Hour),
		}}
		svc := NewAuthService(&credentialStoreStub{}, sessions, passThroughVerifier, nil,
			func() time.Time { return now }, 24*time.Hour)

		if err := svc.RevokeSession(context.Background(), "token-1"); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if sessions.revoked != "token-1" {
			t.Fatalf("expected token-1 revoked, got %q", sessions.revoked)
		}
	})

	t.Run("treats unknown tokens as invalid credentials", func(t *testing.T) {
		svc := NewAuthService(&credentialStoreStub{}, &sessionRepoStub{}, passThroughVerifier, nil,
			func() time.Time { return now }, 24*time.Hour)

		err := svc.RevokeSession(context.Background(), "token-unknown")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
