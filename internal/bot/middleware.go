package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"rewards-hub/internal/config"
)

// ChatAccess decides which chats the bot answers. Group chats must be on
// the whitelist; a private chat is allowed once its user has been seen in a
// whitelisted group, or always when the whitelist is empty.
type ChatAccess struct {
	cfg *config.Config

	mu   sync.RWMutex
	seen map[int64]bool
}

// NewChatAccess creates a new ChatAccess.
func NewChatAccess(cfg *config.Config) *ChatAccess {
	return &ChatAccess{cfg: cfg, seen: make(map[int64]bool)}
}

// Allowed reports whether a message from sender in chat should be handled.
// It records senders seen in whitelisted groups.
func (a *ChatAccess) Allowed(chat *tele.Chat, sender *tele.User) bool {
	if chat == nil || sender == nil {
		return false
	}

	if chat.Type == tele.ChatPrivate {
		if len(a.cfg.Bot.WhitelistChats) == 0 {
			return true
		}
		a.mu.RLock()
		defer a.mu.RUnlock()
		return a.seen[sender.ID]
	}

	if !a.cfg.IsChatAllowed(chat.ID) {
		return false
	}

	a.mu.Lock()
	a.seen[sender.ID] = true
	a.mu.Unlock()
	return true
}

// Middleware drops updates from chats that are not allowed.
func (a *ChatAccess) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !a.Allowed(c.Chat(), c.Sender()) {
				evt := log.Debug()
				if chat := c.Chat(); chat != nil {
					evt = evt.Int64("chat_id", chat.ID)
				}
				evt.Msg("Ignoring update from chat not on the whitelist")
				return nil
			}
			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later.")
				}
			}()
			return next(c)
		}
	}
}
