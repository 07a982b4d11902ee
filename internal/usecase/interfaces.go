package usecase

import (
	"context"
	"time"

	"woonruil/internal/domain/entity"
	"woonruil/internal/infrastructure/firebase"
)

type FirebaseAuthClient interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	VerifyToken(ctx context.Context, token string) (string, error)
	GetUser(ctx context.Context, uid string) (*firebase.UserRecord, error)
	UpdateProfile(ctx context.Context, uid, displayName, photoURL string) error
	SignInWithEmailPassword(ctx context.Context, email, password string) (*firebase.SignInResult, error)
}

// InboxNotifier pushes inbox changes to connected clients. The chat use case
// works without one.
type InboxNotifier interface {
	NotifyInbox(userID string, entry *entity.InboxEntry)
}

// ActionLimiter throttles per-user chat actions.
type ActionLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}
