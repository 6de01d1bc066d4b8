// Package delivery decides whether a channel may deliver a notification
// right now, deferred, or batched into a digest. It is pure: no I/O, no
// clock; the caller supplies the instant and the user's location.
package delivery

import (
	"time"

	"notification-hub-be/internal/model"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "inApp"
)

// Decision is the evaluator's verdict for one (notification, channel) pair.
// Eligible=false with DeferredUntil set means "retry at that instant";
// Eligible=false without it means permanently suppressed for this
// notification. Digest=true asks the transmission layer to accumulate
// instead of firing per item.
type Decision struct {
	Eligible      bool       `json:"eligible"`
	DeferredUntil *time.Time `json:"deferred_until,omitempty"`
	Digest        bool       `json:"digest"`
}

// Evaluator holds the external type classification hooks. Both are optional;
// nil means no type is considered marketing/promotional.
type Evaluator struct {
	IsMarketing   func(notifType string) bool
	IsPromotional func(notifType string) bool
}

// Evaluate applies the delivery-eligibility algorithm:
//  1. channel disabled or type outside a non-empty allow-list: suppressed
//  2. marketing/promotional opt-outs: suppressed
//  3. quiet hours: deferred until the window's next end
//  4. digest mode (email only): eligible but accumulated
//  5. otherwise: deliver now
func (e Evaluator) Evaluate(prefs *model.NotificationPreference, ch Channel, notifType string, now time.Time, loc *time.Location) Decision {
	if prefs == nil {
		return Decision{Eligible: true}
	}

	enabled, allowed := channelSettings(prefs, ch)
	if !enabled || !typeAllowed(allowed, notifType) {
		return Decision{}
	}

	if !prefs.MarketingEnabled && e.IsMarketing != nil && e.IsMarketing(notifType) {
		return Decision{}
	}
	if !prefs.PromotionalEnabled && e.IsPromotional != nil && e.IsPromotional(notifType) {
		return Decision{}
	}

	if ch != ChannelInApp && prefs.QuietHoursEnabled {
		if deferred, ok := quietHoursDeferral(prefs.QuietHoursStart, prefs.QuietHoursEnd, now, loc); ok {
			return Decision{DeferredUntil: &deferred}
		}
	}

	if ch == ChannelEmail && prefs.DigestEnabled && prefs.EmailFrequency != model.FrequencyImmediate {
		return Decision{Eligible: true, Digest: true}
	}

	return Decision{Eligible: true}
}

func channelSettings(prefs *model.NotificationPreference, ch Channel) (bool, []string) {
	switch ch {
	case ChannelEmail:
		return prefs.EmailEnabled, prefs.EmailTypes
	case ChannelPush:
		return prefs.PushEnabled, prefs.PushTypes
	case ChannelInApp:
		return prefs.InAppEnabled, prefs.InAppTypes
	}
	return false, nil
}

// typeAllowed treats an empty allow-list as "all types allowed".
func typeAllowed(allowed []string, notifType string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if t == notifType {
			return true
		}
	}
	return false
}

// quietHoursDeferral reports whether now (in loc) falls inside the daily
// [start, end) window and, if so, the instant the window next ends. A window
// with start > end wraps midnight.
func quietHoursDeferral(start, end string, now time.Time, loc *time.Location) (time.Time, bool) {
	startMin, okS := parseClock(start)
	endMin, okE := parseClock(end)
	if !okS || !okE || startMin == endMin {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()

	inside := false
	if startMin < endMin {
		inside = nowMin >= startMin && nowMin < endMin
	} else {
		inside = nowMin >= startMin || nowMin < endMin
	}
	if !inside {
		return time.Time{}, false
	}

	until := time.Date(local.Year(), local.Month(), local.Day(), endMin/60, endMin%60, 0, 0, loc)
	if !until.After(local) {
		until = until.AddDate(0, 0, 1)
	}
	return until, true
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' ||
		s[3] < '0' || s[3] > '9' || s[4] < '0' || s[4] > '9' ||
		h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
