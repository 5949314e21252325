package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"rewards-hub/internal/model"
	"rewards-hub/internal/rewards"
	"rewards-hub/internal/service"
)

// CatalogService classifies the reward catalog for a user.
type CatalogService interface {
	View(ctx context.Context, userID model.UserID, filter rewards.Filter) (*rewards.CatalogView, error)
}

// RewardsHandler handles catalog and referral commands.
type RewardsHandler struct {
	catalog   CatalogService
	dashboard DashboardService
}

// NewRewardsHandler creates a new RewardsHandler.
func NewRewardsHandler(catalog CatalogService, dashboard DashboardService) *RewardsHandler {
	return &RewardsHandler{catalog: catalog, dashboard: dashboard}
}

// HandleRewards handles /rewards [filter].
func (h *RewardsHandler) HandleRewards(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var arg string
	if args := c.Args(); len(args) > 0 {
		arg = strings.ToLower(args[0])
	}
	filter, err := rewards.ParseFilter(arg)
	if err != nil {
		return c.Reply(errorText(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	view, err := h.catalog.View(ctx, UserID(sender), filter)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(FormatCatalog(view))
}

// HandleReferrals handles /referrals.
func (h *RewardsHandler) HandleReferrals(c tele.Context) error {
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
	return c.Reply(FormatReferrals(d))
}

var classIcon = map[rewards.Class]string{
	rewards.ClassUnlocked:   "🔓",
	rewards.ClassLocked:     "🔒",
	rewards.ClassComingSoon: "⏳",
}

// FormatCatalog renders a catalog view as a list.
func FormatCatalog(v *rewards.CatalogView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎁 Rewards (%s)\n", v.Filter)
	fmt.Fprintf(&b, "All %d · Unlocked %d · Locked %d · Coming soon %d\n\n",
		v.Counts.All, v.Counts.Unlocked, v.Counts.Locked, v.Counts.ComingSoon)

	if len(v.Items) == 0 {
		b.WriteString("Nothing here yet.")
		return b.String()
	}

	for _, item := range v.Items {
		cost := fmt.Sprintf("%d pts", item.PointsRequired)
		if item.Class == rewards.ClassComingSoon {
			cost = "soon"
		}
		fmt.Fprintf(&b, "%s %s - %s\n", classIcon[item.Class], item.Name, cost)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatReferrals renders referral totals and the share link.
func FormatReferrals(d *service.Dashboard) string {
	return fmt.Sprintf(
		"🤝 Referrals: %d\n💰 Earned: %d points\n\nShare your link:\n%s",
		d.Referrals.Count, d.Referrals.PointsEarned, d.ReferralLink,
	)
}
