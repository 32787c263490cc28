package session

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
)

// ErrSkipSave can be returned by an Update callback to leave the stored
// session untouched without reporting a failure.
var ErrSkipSave = errors.New("session: skip save")

// ErrLockTimeout is returned when the per-user lock could not be taken
// before the context expired.
var ErrLockTimeout = errors.New("session: lock timeout")

// Store holds one session per user.  Update calls for the same user are
// serialized; calls for different users never wait on each other.  Get
// never waits for an in-flight Update and returns the last saved state.
type Store interface {
	Get(ctx context.Context, userID int64) (Session, bool, error)
	Update(ctx context.Context, userID int64, fn func(*Session) error) (Session, error)
	Delete(ctx context.Context, userID int64) error
}

// LanguageOf returns the recorded language of userID, or the default
// language when the user has no session or the lookup fails.
func LanguageOf(ctx context.Context, s Store, userID int64) catalog.Language {
	sess, ok, err := s.Get(ctx, userID)
	if err != nil {
		log.Printf("session: language lookup for user %d failed: %v", userID, err)
		return catalog.DefaultLanguage
	}
	if !ok {
		return catalog.DefaultLanguage
	}
	return sess.Lang()
}
