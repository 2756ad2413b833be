package announce

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	aqm "github.com/appetiteclub/apt"
	"github.com/chopline/kds/internal/kds"
)

// mockSpeaker is a test mock for Speaker
type mockSpeaker struct {
	mu           sync.Mutex
	announced    []Announcement
	delivered    chan Announcement
	AnnounceFunc func(ctx context.Context, a Announcement) error
}

func newMockSpeaker() *mockSpeaker {
	return &mockSpeaker{
		delivered: make(chan Announcement, 16),
	}
}

func (m *mockSpeaker) Announce(ctx context.Context, a Announcement) error {
	if m.AnnounceFunc != nil {
		return m.AnnounceFunc(ctx, a)
	}
	m.mu.Lock()
	m.announced = append(m.announced, a)
	m.mu.Unlock()
	m.delivered <- a
	return nil
}

func (m *mockSpeaker) wait(t *testing.T) Announcement {
	t.Helper()
	select {
	case a := <-m.delivered:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("no announcement delivered")
		return Announcement{}
	}
}

func at(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 1, hour, 30, 0, 0, time.UTC)
	}
}

func testOrder(name string) kds.Order {
	return kds.Order{
		ID:      1,
		Name:    name,
		TableNo: "3",
		Price:   25.00,
		Status:  "pending",
	}
}

func newTestOrchestrator(speaker Speaker) *Orchestrator {
	o := New(speaker, aqm.NewNoopLogger(), Options{})
	o.clock = at(14) // daytime unless a test overrides
	return o
}

func TestRulePriority(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want Rule
	}{
		{
			name: "urgentBeatsEverything",
			ctx:  Context{Urgent: true, Load: "busy", Size: "large", TimeOfDay: "night"},
			want: RuleUrgent,
		},
		{
			name: "busyBeatsLarge",
			ctx:  Context{Load: "busy", Size: "large", TimeOfDay: "night"},
			want: RuleBusy,
		},
		{
			name: "largeBeatsQuiet",
			ctx:  Context{Load: "quiet", Size: "large", TimeOfDay: "night"},
			want: RuleLarge,
		},
		{
			name: "nightTriggersQuiet",
			ctx:  Context{Load: "normal", Size: "small", TimeOfDay: "night"},
			want: RuleQuiet,
		},
		{
			name: "quietLoadTriggersQuiet",
			ctx:  Context{Load: "quiet", Size: "small", TimeOfDay: "day"},
			want: RuleQuiet,
		},
		{
			name: "standardFallback",
			ctx:  Context{Load: "normal", Size: "medium", TimeOfDay: "day"},
			want: RuleStandard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ruleFor(tt.ctx); got != tt.want {
				t.Errorf("ruleFor(%+v) = %v, want %v", tt.ctx, got, tt.want)
			}
		})
	}
}

func TestDecideRotatesVariants(t *testing.T) {
	o := newTestOrchestrator(nil)
	order := testOrder("Waakye")
	ctx := Context{Load: "normal", Size: "small", TimeOfDay: "day"}

	k := VariantCount(RuleStandard)
	if k < 2 {
		t.Fatalf("standard bucket needs at least 2 variants, has %d", k)
	}

	// Consecutive decisions under the same context walk the variants in
	// order and wrap around.
	seen := make([]string, 0, k+1)
	for i := 0; i <= k; i++ {
		if got := o.RotationIndex(RuleStandard); got != i%k {
			t.Errorf("RotationIndex before decision %d = %d, want %d", i, got, i%k)
		}
		a := o.Decide(order, ctx)
		if a.Rule != RuleStandard {
			t.Fatalf("Decide() Rule = %v, want %v", a.Rule, RuleStandard)
		}
		seen = append(seen, a.Text)
	}

	for i := 1; i < k; i++ {
		if seen[i] == seen[i-1] {
			t.Errorf("decisions %d and %d produced identical text %q", i-1, i, seen[i])
		}
	}
	if seen[k] != seen[0] {
		t.Errorf("decision %d = %q, want wrap-around to %q", k, seen[k], seen[0])
	}
}

func TestDecideRotationIsPerRule(t *testing.T) {
	o := newTestOrchestrator(nil)
	order := testOrder("Fufu")

	o.Decide(order, Context{Load: "normal", Size: "small", TimeOfDay: "day"})
	o.Decide(order, Context{Load: "busy"})

	if got := o.RotationIndex(RuleStandard); got != 1 {
		t.Errorf("standard rotation = %d, want 1", got)
	}
	if got := o.RotationIndex(RuleBusy); got != 1 {
		t.Errorf("busy rotation = %d, want 1", got)
	}
	if got := o.RotationIndex(RuleUrgent); got != 0 {
		t.Errorf("urgent rotation = %d, want untouched 0", got)
	}
}

func TestDecideCarriesProfile(t *testing.T) {
	o := newTestOrchestrator(nil)

	a := o.Decide(testOrder("Banku"), Context{Urgent: true})
	want := ProfileFor(RuleUrgent)
	if a.Profile != want {
		t.Errorf("Decide() Profile = %+v, want %+v", a.Profile, want)
	}
	if a.OrderID != 1 {
		t.Errorf("Decide() OrderID = %d, want 1", a.OrderID)
	}
}

func TestReset(t *testing.T) {
	o := newTestOrchestrator(nil)
	order := testOrder("Shito")
	ctx := Context{Load: "normal", Size: "small", TimeOfDay: "day"}

	first := o.Decide(order, ctx)
	o.Decide(order, ctx)
	o.Reset()

	if got := o.RotationIndex(RuleStandard); got != 0 {
		t.Errorf("RotationIndex after Reset = %d, want 0", got)
	}
	if again := o.Decide(order, ctx); again.Text != first.Text {
		t.Errorf("Decide() after Reset = %q, want first variant %q", again.Text, first.Text)
	}
}

func TestContextFor(t *testing.T) {
	tests := []struct {
		name    string
		order   kds.Order
		hour    int
		active  int
		want    Context
	}{
		{
			name:   "standardDay",
			order:  testOrder("Waakye"),
			hour:   14,
			active: 4,
			want:   Context{TimeOfDay: "day", Load: "normal", Size: "small"},
		},
		{
			name:   "urgentFlag",
			order:  kds.Order{ID: 1, Name: "Fufu", Priority: kds.PriorityHigh},
			hour:   14,
			active: 4,
			want:   Context{Urgent: true, TimeOfDay: "day", Load: "normal", Size: "small"},
		},
		{
			name:   "busyEvening",
			order:  testOrder("Banku"),
			hour:   18,
			active: 8,
			want:   Context{TimeOfDay: "evening", Load: "busy", Size: "small"},
		},
		{
			name:   "quietNightLargeOrder",
			order:  testOrder("Jollof, Banku, Fufu, Waakye, Kelewele"),
			hour:   23,
			active: 1,
			want:   Context{TimeOfDay: "night", Load: "quiet", Size: "large"},
		},
		{
			name:   "morningMediumOrder",
			order:  testOrder("Jollof, Banku, Fufu"),
			hour:   8,
			active: 3,
			want:   Context{TimeOfDay: "morning", Load: "normal", Size: "medium"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(nil)
			o.clock = at(tt.hour)
			o.SetLoadCounter(func() int { return tt.active })

			if got := o.ContextFor(tt.order); got != tt.want {
				t.Errorf("ContextFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestContextForWithoutLoadCounter(t *testing.T) {
	o := newTestOrchestrator(nil)

	got := o.ContextFor(testOrder("Waakye"))
	if got.Load != "quiet" {
		t.Errorf("Load without counter = %q, want %q", got.Load, "quiet")
	}
}

func TestTimeOfDayBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{hour: 5, want: "night"},
		{hour: 6, want: "morning"},
		{hour: 11, want: "morning"},
		{hour: 12, want: "day"},
		{hour: 16, want: "day"},
		{hour: 17, want: "evening"},
		{hour: 21, want: "evening"},
		{hour: 22, want: "night"},
		{hour: 0, want: "night"},
	}

	for _, tt := range tests {
		got := timeOfDay(time.Date(2026, 3, 1, tt.hour, 0, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("timeOfDay(hour %d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestRenderTemplate(t *testing.T) {
	got := renderTemplate("New order for {table}. The dish is {items}, {price}.", "WAH-chay", "5", 30, "")
	want := "New order for 5. The dish is WAH-chay, 30.00."
	if got != want {
		t.Errorf("renderTemplate() = %q, want %q", got, want)
	}
}

func TestRenderTemplateWithNote(t *testing.T) {
	got := renderTemplate("{items} for {table}.", "FOO-foo", "2", 20, "extra pepper")
	want := "FOO-foo for 2. With order note extra pepper."
	if got != want {
		t.Errorf("renderTemplate() = %q, want %q", got, want)
	}

	// Blank notes are not spoken.
	got = renderTemplate("{items} for {table}.", "FOO-foo", "2", 20, "   ")
	if strings.Contains(got, "order note") {
		t.Errorf("renderTemplate() with blank note = %q, should not mention a note", got)
	}
}

func TestPronounce(t *testing.T) {
	tests := []struct {
		name  string
		items string
		want  string
	}{
		{name: "singleDish", items: "Banku", want: "BAHN-koo"},
		{name: "longestMatchFirst", items: "Jollof Rice", want: "JOH-lof rice"},
		{name: "bareJollof", items: "Jollof", want: "JOH-lof"},
		{name: "caseInsensitive", items: "WAAKYE", want: "WAH-chay"},
		{name: "mixedList", items: "Fufu, Grilled Chicken", want: "FOO-foo, grilled chicken"},
		{name: "unknownDishLowercased", items: "Pizza", want: "pizza"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pronounce(tt.items); got != tt.want {
				t.Errorf("Pronounce(%q) = %q, want %q", tt.items, got, tt.want)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		rule       Rule
		wantName   string
		wantVoice  string
		wantRate   float64
		wantPitch  float64
		wantVolume float64
	}{
		{rule: RuleStandard, wantName: "standard", wantVoice: "en-US-Wavenet-D", wantRate: 0.9, wantPitch: -2, wantVolume: 2},
		{rule: RuleUrgent, wantName: "urgent", wantVoice: "en-US-Wavenet-B", wantRate: 1.1, wantPitch: 2, wantVolume: 4},
		{rule: RuleBusy, wantName: "busy_kitchen", wantVoice: "en-US-Wavenet-D", wantRate: 0.8, wantPitch: -1, wantVolume: 6},
		{rule: RuleQuiet, wantName: "quiet_hours", wantVoice: "en-US-Wavenet-F", wantRate: 0.85, wantPitch: -3, wantVolume: 1},
		{rule: RuleLarge, wantName: "large_order", wantVoice: "en-US-Wavenet-D", wantRate: 0.75, wantPitch: -2, wantVolume: 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			p := ProfileFor(tt.rule)
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if p.VoiceName != tt.wantVoice {
				t.Errorf("VoiceName = %q, want %q", p.VoiceName, tt.wantVoice)
			}
			if p.Rate != tt.wantRate {
				t.Errorf("Rate = %v, want %v", p.Rate, tt.wantRate)
			}
			if p.Pitch != tt.wantPitch {
				t.Errorf("Pitch = %v, want %v", p.Pitch, tt.wantPitch)
			}
			if p.Volume != tt.wantVolume {
				t.Errorf("Volume = %v, want %v", p.Volume, tt.wantVolume)
			}
		})
	}

	// Unknown rules fall back to the standard profile.
	if got := ProfileFor(Rule("mystery")); got != ProfileFor(RuleStandard) {
		t.Errorf("ProfileFor(unknown) = %+v, want standard profile", got)
	}
}

func TestAnnounceDeliversToSpeaker(t *testing.T) {
	speaker := newMockSpeaker()
	o := newTestOrchestrator(speaker)
	o.SetLoadCounter(func() int { return 4 })

	o.Announce(testOrder("Jollof Rice"))

	a := speaker.wait(t)
	if a.Rule != RuleStandard {
		t.Errorf("delivered Rule = %v, want %v", a.Rule, RuleStandard)
	}
	if !strings.Contains(a.Text, "JOH-lof rice") {
		t.Errorf("delivered Text = %q, want phonetic dish name", a.Text)
	}
	if !strings.Contains(a.Text, "25.00") {
		t.Errorf("delivered Text = %q, want formatted price", a.Text)
	}
}

func TestAnnounceSpeakerFailureIsIsolated(t *testing.T) {
	delivered := make(chan struct{})
	speaker := newMockSpeaker()
	speaker.AnnounceFunc = func(ctx context.Context, a Announcement) error {
		close(delivered)
		return errors.New("synthesis unavailable")
	}
	o := newTestOrchestrator(speaker)

	// Must not panic or propagate; rotation still advances.
	o.Announce(testOrder("Waakye"))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("speaker was never invoked")
	}
	if got := o.RotationIndex(RuleQuiet); got != 1 {
		t.Errorf("rotation after failed delivery = %d, want 1", got)
	}
}

func TestAnnounceWithoutSpeaker(t *testing.T) {
	o := newTestOrchestrator(nil)

	// Decision still happens; delivery is skipped.
	o.Announce(testOrder("Kelewele"))
	if got := o.RotationIndex(RuleQuiet); got != 1 {
		t.Errorf("rotation without speaker = %d, want 1", got)
	}
}
