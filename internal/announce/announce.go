package announce

import (
	"context"
	"strings"
	"sync"
	"time"

	aqm "github.com/appetiteclub/apt"
	"github.com/chopline/kds/internal/kds"
)

// Rule identifies which announcement rule bucket matched. Rules are evaluated
// in fixed priority order; the first match wins.
type Rule string

const (
	RuleUrgent   Rule = "urgent"
	RuleBusy     Rule = "busy"
	RuleLarge    Rule = "large_order"
	RuleQuiet    Rule = "quiet_hours"
	RuleStandard Rule = "standard"
)

// Context is the ephemeral situation an announcement decision is made in.
// Computed fresh per decision, never persisted.
type Context struct {
	Urgent    bool
	TimeOfDay string // morning, day, evening, night
	Load      string // busy, normal, quiet
	Size      string // small, medium, large
}

// Announcement is the formatted message plus delivery profile handed to the
// synthesis collaborator.
type Announcement struct {
	OrderID int64   `json:"order_id"`
	Rule    Rule    `json:"rule"`
	Text    string  `json:"text"`
	Profile Profile `json:"profile"`
}

// Speaker is the external synthesis/playback collaborator. Errors are logged
// here and never propagate to bucket-state callers.
type Speaker interface {
	Announce(ctx context.Context, a Announcement) error
}

// Options tune the context derivation thresholds.
type Options struct {
	// LargeItems is the item count above which an order counts as large.
	LargeItems int
	// BusyOrders is the active-board size at which the kitchen counts as busy.
	BusyOrders int
}

const (
	defaultLargeItems = 4
	defaultBusyOrders = 8
)

// Orchestrator decides whether and how to announce newly actionable orders.
// It owns the per-rule rotation counters exclusively; they live for the
// process and reset only on engine re-attachment.
type Orchestrator struct {
	speaker Speaker
	logger  aqm.Logger

	mu       sync.Mutex
	rotation map[Rule]int

	loadCount  func() int
	clock      func() time.Time
	largeItems int
	busyOrders int
}

func New(speaker Speaker, logger aqm.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if opts.LargeItems <= 0 {
		opts.LargeItems = defaultLargeItems
	}
	if opts.BusyOrders <= 0 {
		opts.BusyOrders = defaultBusyOrders
	}
	return &Orchestrator{
		speaker:    speaker,
		logger:     logger,
		rotation:   make(map[Rule]int),
		clock:      time.Now,
		largeItems: opts.LargeItems,
		busyOrders: opts.BusyOrders,
	}
}

// SetLoadCounter wires the kitchen-load source (called after initialization)
func (o *Orchestrator) SetLoadCounter(fn func() int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loadCount = fn
}

// Announce derives the current context, decides the message and profile, and
// hands off to the speaker. The hand-off is fire-and-forget so slow synthesis
// can never delay bucket-state convergence; delivery failure is logged and
// isolated.
func (o *Orchestrator) Announce(order kds.Order) {
	a := o.Decide(order, o.ContextFor(order))
	if o.speaker == nil {
		return
	}
	go func() {
		if err := o.speaker.Announce(context.Background(), a); err != nil {
			o.logger.Errorf("announcement delivery failed for order %d: %v", order.ID, err)
		}
	}()
}

// Reset clears the per-rule rotation counters.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rotation = make(map[Rule]int)
}

// ContextFor computes the announcement context for an order from the clock,
// the board load and the order itself.
func (o *Orchestrator) ContextFor(order kds.Order) Context {
	o.mu.Lock()
	loadCount := o.loadCount
	o.mu.Unlock()

	active := 0
	if loadCount != nil {
		active = loadCount()
	}

	return Context{
		Urgent:    order.Urgent(),
		TimeOfDay: timeOfDay(o.clock()),
		Load:      o.loadBucket(active),
		Size:      o.sizeBucket(order.Name),
	}
}

// Decide selects the template and delivery profile for the given context.
// Deterministic for identical context and rotation state; each call advances
// the matched rule's rotation counter by one, modulo the variant count.
func (o *Orchestrator) Decide(order kds.Order, ctx Context) Announcement {
	rule := ruleFor(ctx)
	variants := templates[rule]

	o.mu.Lock()
	idx := o.rotation[rule] % len(variants)
	o.rotation[rule] = (idx + 1) % len(variants)
	o.mu.Unlock()

	text := renderTemplate(variants[idx], Pronounce(order.Name), order.TableNo, order.Price, order.Note)

	return Announcement{
		OrderID: order.ID,
		Rule:    rule,
		Text:    text,
		Profile: ProfileFor(rule),
	}
}

// RotationIndex returns the next variant index for a rule bucket.
func (o *Orchestrator) RotationIndex(rule Rule) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rotation[rule]
}

// ruleFor applies the fixed priority order:
// urgent > busy > large order > night-or-quiet > standard.
func ruleFor(ctx Context) Rule {
	switch {
	case ctx.Urgent:
		return RuleUrgent
	case ctx.Load == "busy":
		return RuleBusy
	case ctx.Size == "large":
		return RuleLarge
	case ctx.TimeOfDay == "night" || ctx.Load == "quiet":
		return RuleQuiet
	default:
		return RuleStandard
	}
}

func (o *Orchestrator) loadBucket(active int) string {
	switch {
	case active >= o.busyOrders:
		return "busy"
	case active <= 1:
		// the order being announced is already on the board
		return "quiet"
	default:
		return "normal"
	}
}

func (o *Orchestrator) sizeBucket(items string) string {
	count := len(strings.Split(items, ","))
	switch {
	case count > o.largeItems:
		return "large"
	case count > 2:
		return "medium"
	default:
		return "small"
	}
}

func timeOfDay(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "day"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}
