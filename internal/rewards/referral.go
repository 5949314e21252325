package rewards

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/go-faster/errors"

	"rewards-hub/internal/model"
)

// ReferralSummary totals a user's referrals.
type ReferralSummary struct {
	Count        int   `json:"count"`
	PointsEarned int64 `json:"points_earned"`
}

// AggregateReferrals counts every referral but only sums points for
// completed ones.
func AggregateReferrals(records []model.ReferralRecord) ReferralSummary {
	s := ReferralSummary{Count: len(records)}
	for _, r := range records {
		if r.Status == model.ReferralCompleted {
			s.PointsEarned += r.PointsAwarded
		}
	}
	return s
}

// ReferralLink builds the shareable signup link for a user. The ref code is
// the local part of the email (or "user") followed by a four digit suffix
// derived from the user ID, so the same user always gets the same link.
func ReferralLink(baseURL, email string, userID model.UserID) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse referral base url")
	}

	q := u.Query()
	q.Set("ref", ReferralCode(email, userID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReferralCode returns the ref code used in ReferralLink.
func ReferralCode(email string, userID model.UserID) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		local = "user"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return fmt.Sprintf("%s%04d", local, h.Sum32()%10000)
}
