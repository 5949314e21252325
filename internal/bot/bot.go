// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"rewards-hub/internal/config"
	"rewards-hub/internal/handler"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	access  *ChatAccess
	checkin *handler.CheckinHandler
	rewards *handler.RewardsHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config    *config.Config
	Checkin   handler.CheckinService
	Dashboard handler.DashboardService
	Catalog   handler.CatalogService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, errors.New("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: deps.Config.Bot.PollerTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bot")
	}

	b := &Bot{
		bot:     teleBot,
		access:  NewChatAccess(deps.Config),
		checkin: handler.NewCheckinHandler(deps.Checkin, deps.Dashboard, deps.Config.Checkin.Reward),
		rewards: handler.NewRewardsHandler(deps.Catalog, deps.Dashboard),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(b.access.Middleware())
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.checkin.HandleStart)
	b.bot.Handle("/checkin", b.checkin.HandleCheckin)
	b.bot.Handle("/balance", b.checkin.HandleBalance)
	b.bot.Handle("/rewards", b.rewards.HandleRewards)
	b.bot.Handle("/referrals", b.rewards.HandleReferrals)
}

// Start starts long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
