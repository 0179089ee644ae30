package responder

import (
	"fmt"
	"sort"
	"time"

	"github.com/resqnow/resqnow/internal/domain/emergency"
	"github.com/resqnow/resqnow/internal/domain/profile"
)

// View is an active emergency as a responder sees it: the record enriched
// with the reporter's profile (when one exists), the distance from the
// responder's position (when known), and a coarse age label.
type View struct {
	*emergency.Record
	UserInfo   *profile.Profile `json:"user_info,omitempty"`
	DistanceKm *float64         `json:"distance_km,omitempty"`
	TimeAgo    string           `json:"time_ago"`
}

// FormatTimeAgo renders the coarse age label shown on responder dashboards.
// Boundary values roll into the larger bucket: exactly 60 seconds is
// "1 min ago", not "60 sec ago".
func FormatTimeAgo(at, now time.Time) string {
	secs := int(now.Sub(at).Seconds())
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%d sec ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%d min ago", secs/60)
	case secs < 86400:
		return pluralAgo(secs/3600, "hour")
	default:
		return pluralAgo(secs/86400, "day")
	}
}

func pluralAgo(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// SortViews orders views for display: known distances ascending first, then
// unknown-distance views, most recent first among themselves. The sort is
// stable so equal keys keep their arrival order.
func SortViews(views []*View) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		switch {
		case a.DistanceKm != nil && b.DistanceKm != nil:
			return *a.DistanceKm < *b.DistanceKm
		case a.DistanceKm != nil:
			return true
		case b.DistanceKm != nil:
			return false
		default:
			return a.ReportedAt.After(b.ReportedAt)
		}
	})
}
