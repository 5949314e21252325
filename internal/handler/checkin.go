// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"rewards-hub/internal/checkin"
	"rewards-hub/internal/model"
	"rewards-hub/internal/rewards"
	"rewards-hub/internal/service"
)

// requestTimeout bounds every command's calls into the services.
const requestTimeout = 10 * time.Second

// CheckinService claims daily rewards.
type CheckinService interface {
	ClaimDaily(ctx context.Context, userID model.UserID) (*service.ClaimResult, error)
}

// DashboardService loads the dashboard snapshot.
type DashboardService interface {
	GetDashboard(ctx context.Context, id model.Identity) (*service.Dashboard, error)
}

// UserID maps a Telegram user to the ledger's user ID.
func UserID(sender *tele.User) model.UserID {
	return model.UserID("tg:" + strconv.FormatInt(sender.ID, 10))
}

// CheckinHandler handles account and check-in commands.
type CheckinHandler struct {
	checkin   CheckinService
	dashboard DashboardService
	reward    int64
}

// NewCheckinHandler creates a new CheckinHandler. reward is the configured
// daily credit shown in the welcome text.
func NewCheckinHandler(claims CheckinService, dashboard DashboardService, reward int64) *CheckinHandler {
	if reward <= 0 {
		reward = checkin.DailyReward
	}
	return &CheckinHandler{checkin: claims, dashboard: dashboard, reward: reward}
}

// HandleStart handles the /start command.
func (h *CheckinHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	name := sender.Username
	if name == "" {
		name = sender.FirstName
	}

	return c.Reply(FormatWelcome(name, h.reward))
}

// FormatWelcome renders the /start reply.
func FormatWelcome(name string, reward int64) string {
	return fmt.Sprintf(
		"👋 Welcome, %s!\n\n"+
			"Available commands:\n"+
			"/checkin - claim today's %d points\n"+
			"/balance - points, streak and goal progress\n"+
			"/rewards [all|unlocked|locked|coming_soon] - reward catalog\n"+
			"/referrals - your referral link and totals",
		name, reward,
	)
}

// HandleCheckin handles the /checkin command.
func (h *CheckinHandler) HandleCheckin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	res, err := h.checkin.ClaimDaily(ctx, UserID(sender))
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(FormatClaim(res))
}

// HandleBalance handles the /balance command.
func (h *CheckinHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	d, err := h.dashboard.GetDashboard(ctx, model.Identity{UserID: UserID(sender), Email: sender.Username})
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(FormatBalance(d))
}

// FormatClaim renders a claim result.
func FormatClaim(res *service.ClaimResult) string {
	if !res.Outcome.Credits() {
		return fmt.Sprintf(
			"⏰ You already checked in today.\n\nPoints: %d\nStreak: %d day(s)",
			res.Points, res.Streak,
		)
	}

	streakLine := fmt.Sprintf("🔥 Streak: %d day(s)", res.Streak)
	if res.Outcome == checkin.Reset && res.Streak == 1 {
		streakLine = "🔥 New streak started!"
	}
	return fmt.Sprintf(
		"✅ Checked in! +%d points\n\n%s\n💰 Points: %d",
		res.Credited, streakLine, res.Points,
	)
}

// FormatBalance renders the dashboard summary.
func FormatBalance(d *service.Dashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Points: %d\n", d.Points)
	fmt.Fprintf(&b, "🔥 Streak: %d day(s)\n", d.Streak)
	fmt.Fprintf(&b, "🎯 Goal: %d/%d (%.0f%%)\n", d.Points, d.Goal.Target, d.Goal.Percent)
	if d.CanClaimToday {
		b.WriteString("\nToday's check-in is available: /checkin")
	} else {
		b.WriteString("\nToday's check-in is done. Come back tomorrow!")
	}
	return b.String()
}

// errorText maps service errors to a user-facing reply.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidState):
		log.Error().Err(err).Msg("Ledger in invalid state")
		return "❌ Your account needs attention. Please contact support."
	case errors.Is(err, rewards.ErrUnknownFilter):
		return "❌ Unknown filter. Use all, unlocked, locked or coming_soon."
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Warn().Err(err).Msg("Store unavailable while handling command")
		return "❌ Service is busy, please try again shortly."
	default:
		log.Error().Err(err).Msg("Command failed")
		return "❌ Something went wrong, please try again later."
	}
}
