package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// TurnRegistry tracks the cancel function of every turn currently streaming on this
// instance, keyed by chat and user. Entries expire after the turn timeout in case a turn
// never unregisters.
type TurnRegistry struct {
	cache *cache.Cache
}

type activeTurn struct {
	token  string
	cancel context.CancelFunc
}

func NewTurnRegistry(turnTimeout time.Duration) *TurnRegistry {
	return &TurnRegistry{
		cache: cache.New(turnTimeout+time.Minute, 5*time.Minute),
	}
}

func turnKey(chatID, userID uuid.UUID) string {
	return chatID.String() + ":" + userID.String()
}

// Register stores cancel for the turn and returns a function that removes it again. A
// newer turn on the same chat replaces the older entry; the older release is then a no-op.
func (r *TurnRegistry) Register(chatID, userID uuid.UUID, cancel context.CancelFunc) func() {
	key := turnKey(chatID, userID)
	token := uuid.NewString()
	r.cache.Set(key, &activeTurn{token: token, cancel: cancel}, cache.DefaultExpiration)

	return func() {
		if x, found := r.cache.Get(key); found && x.(*activeTurn).token == token {
			r.cache.Delete(key)
		}
	}
}

// Cancel stops the active turn, reporting whether there was one.
func (r *TurnRegistry) Cancel(chatID, userID uuid.UUID) bool {
	key := turnKey(chatID, userID)
	x, found := r.cache.Get(key)
	if !found {
		return false
	}
	r.cache.Delete(key)
	x.(*activeTurn).cancel()
	return true
}
