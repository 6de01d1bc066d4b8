package delivery

import (
	"testing"
	"time"

	"notification-hub-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func basePrefs() *model.NotificationPreference {
	return model.DefaultPreference(uuid.New())
}

func TestEvaluateChannelGating(t *testing.T) {
	var ev Evaluator
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		mutate       func(p *model.NotificationPreference)
		ch           Channel
		notifType    string
		wantEligible bool
	}{
		{"all defaults deliver", nil, ChannelEmail, "info", true},
		{"disabled channel suppressed", func(p *model.NotificationPreference) { p.PushEnabled = false }, ChannelPush, "info", false},
		{"empty allow-list admits all", func(p *model.NotificationPreference) { p.EmailTypes = nil }, ChannelEmail, "security", true},
		{"type on allow-list", func(p *model.NotificationPreference) {
			p.EmailTypes = datatypes.NewJSONSlice([]string{"billing", "security"})
		}, ChannelEmail, "security", true},
		{"type off allow-list suppressed", func(p *model.NotificationPreference) {
			p.EmailTypes = datatypes.NewJSONSlice([]string{"billing"})
		}, ChannelEmail, "info", false},
		{"other channel keeps own list", func(p *model.NotificationPreference) {
			p.EmailTypes = datatypes.NewJSONSlice([]string{"billing"})
		}, ChannelInApp, "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePrefs()
			if tt.mutate != nil {
				tt.mutate(p)
			}
			d := ev.Evaluate(p, tt.ch, tt.notifType, now, time.UTC)
			if d.Eligible != tt.wantEligible {
				t.Errorf("Eligible = %v, want %v", d.Eligible, tt.wantEligible)
			}
			if !tt.wantEligible && d.DeferredUntil != nil {
				t.Errorf("suppression must not carry a deferral, got %v", d.DeferredUntil)
			}
		})
	}
}

func TestEvaluateMarketingOptOut(t *testing.T) {
	ev := Evaluator{IsMarketing: func(s string) bool { return s == "promo_blast" }}
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	p := basePrefs()
	p.MarketingEnabled = false

	if d := ev.Evaluate(p, ChannelEmail, "promo_blast", now, time.UTC); d.Eligible {
		t.Error("marketing type must be suppressed when marketing is off")
	}
	if d := ev.Evaluate(p, ChannelEmail, "security", now, time.UTC); !d.Eligible {
		t.Error("non-marketing type must still deliver")
	}

	// Opt-out is layered independently of the allow-list: the type can be
	// explicitly allow-listed and still be suppressed.
	p.EmailTypes = datatypes.NewJSONSlice([]string{"promo_blast"})
	if d := ev.Evaluate(p, ChannelEmail, "promo_blast", now, time.UTC); d.Eligible {
		t.Error("allow-list must not override the marketing opt-out")
	}
}

func TestEvaluateQuietHours(t *testing.T) {
	var ev Evaluator
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		start     string
		end       string
		localTime time.Time
		loc       *time.Location
		deferred  bool
		wantUntil time.Time
	}{
		{
			name: "inside plain window", start: "13:00", end: "15:00",
			localTime: time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC), loc: time.UTC,
			deferred: true, wantUntil: time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			name: "outside plain window", start: "13:00", end: "15:00",
			localTime: time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC), loc: time.UTC,
			deferred: false,
		},
		{
			name: "wrapped window before midnight", start: "22:00", end: "08:00",
			localTime: time.Date(2026, 4, 1, 23, 30, 0, 0, time.UTC), loc: time.UTC,
			deferred: true, wantUntil: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "wrapped window after midnight", start: "22:00", end: "08:00",
			localTime: time.Date(2026, 4, 2, 1, 15, 0, 0, time.UTC), loc: time.UTC,
			deferred: true, wantUntil: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "wrapped window midday gap", start: "22:00", end: "08:00",
			localTime: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), loc: time.UTC,
			deferred: false,
		},
		{
			name: "end boundary is exclusive", start: "22:00", end: "08:00",
			localTime: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC), loc: time.UTC,
			deferred: false,
		},
		{
			name: "user timezone applied", start: "22:00", end: "08:00",
			// 16:30 UTC = 23:30 in Jakarta (UTC+7).
			localTime: time.Date(2026, 4, 1, 16, 30, 0, 0, time.UTC), loc: jakarta,
			deferred: true, wantUntil: time.Date(2026, 4, 2, 8, 0, 0, 0, jakarta),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePrefs()
			p.QuietHoursEnabled = true
			p.QuietHoursStart = tt.start
			p.QuietHoursEnd = tt.end

			d := ev.Evaluate(p, ChannelEmail, "info", tt.localTime, tt.loc)
			if tt.deferred {
				if d.Eligible || d.DeferredUntil == nil {
					t.Fatalf("want deferral, got %+v", d)
				}
				if !d.DeferredUntil.Equal(tt.wantUntil) {
					t.Errorf("DeferredUntil = %v, want %v", d.DeferredUntil, tt.wantUntil)
				}
			} else if !d.Eligible {
				t.Errorf("want eligible outside quiet hours, got %+v", d)
			}
		})
	}
}

func TestEvaluateQuietHoursSkipInApp(t *testing.T) {
	var ev Evaluator
	p := basePrefs()
	p.QuietHoursEnabled = true
	p.QuietHoursStart = "00:00"
	p.QuietHoursEnd = "23:59"

	// Quiet hours suppress active channels only; in-app storage and display
	// stay available.
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	if d := ev.Evaluate(p, ChannelInApp, "info", now, time.UTC); !d.Eligible {
		t.Errorf("in-app must ignore quiet hours, got %+v", d)
	}
	if d := ev.Evaluate(p, ChannelEmail, "info", now, time.UTC); d.Eligible {
		t.Errorf("email must defer during quiet hours, got %+v", d)
	}
}

func TestEvaluateDigestMode(t *testing.T) {
	var ev Evaluator
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	p := basePrefs()
	p.DigestEnabled = true
	p.EmailFrequency = model.FrequencyDaily

	d := ev.Evaluate(p, ChannelEmail, "info", now, time.UTC)
	if !d.Eligible || !d.Digest {
		t.Errorf("want eligible digest decision, got %+v", d)
	}

	// Immediate frequency bypasses the digest even when enabled.
	p.EmailFrequency = model.FrequencyImmediate
	if d := ev.Evaluate(p, ChannelEmail, "info", now, time.UTC); d.Digest {
		t.Errorf("immediate frequency must not digest, got %+v", d)
	}

	// Digesting is an email concern; push delivers per item.
	p.EmailFrequency = model.FrequencyDaily
	if d := ev.Evaluate(p, ChannelPush, "info", now, time.UTC); d.Digest {
		t.Errorf("push must not digest, got %+v", d)
	}
}

func TestEvaluateNilPreferences(t *testing.T) {
	var ev Evaluator
	d := ev.Evaluate(nil, ChannelEmail, "info", time.Now(), time.UTC)
	if !d.Eligible || d.Digest {
		t.Errorf("missing record means defaults, got %+v", d)
	}
}
