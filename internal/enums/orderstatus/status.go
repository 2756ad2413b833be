package orderstatus

import (
	"strings"
)

// Stage is the coarse lifecycle grouping used for bucketing orders on the
// display board. Two raw labels in the same stage are interchangeable for
// bucketing; the label itself is preserved on the order for display.
type Stage string

const (
	StageNew      Stage = "new"
	StageActive   Stage = "active"
	StageTerminal Stage = "terminal"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Stage returns the lifecycle stage this status belongs to.
func (s Status) Stage() Stage {
	return stageByName[s.Name]
}

type Enum struct {
	Pending    Status
	Incoming   Status
	Processing Status
	InProgress Status
	Complete   Status
	Completed  Status
	Rejected   Status
}

// Statuses is the closed vocabulary. It carries both raw schemas seen across
// the store (incoming/processing/complete and pending/in_progress/completed/
// rejected) so display labels survive normalization unchanged.
var Statuses = Enum{
	Pending:    Status{Name: "pending"},
	Incoming:   Status{Name: "incoming"},
	Processing: Status{Name: "processing"},
	InProgress: Status{Name: "in_progress"},
	Complete:   Status{Name: "complete"},
	Completed:  Status{Name: "completed"},
	Rejected:   Status{Name: "rejected"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Incoming,
	Statuses.Processing,
	Statuses.InProgress,
	Statuses.Complete,
	Statuses.Completed,
	Statuses.Rejected,
}

var stageByName = map[string]Stage{
	Statuses.Pending.Name:    StageNew,
	Statuses.Incoming.Name:   StageNew,
	Statuses.Processing.Name: StageActive,
	Statuses.InProgress.Name: StageActive,
	Statuses.Complete.Name:   StageTerminal,
	Statuses.Completed.Name:  StageTerminal,
	Statuses.Rejected.Name:   StageTerminal,
}

// aliases covers spelling drift seen in older rows ("in-progress",
// "in progress") without widening the vocabulary.
var aliases = map[string]string{
	"in-progress": Statuses.InProgress.Name,
	"in progress": Statuses.InProgress.Name,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Normalize maps any raw status value to a member of the closed vocabulary.
// Unrecognized or missing input maps to pending, the initial NEW-stage
// status. Total function, no failure mode.
func Normalize(raw string) Status {
	name := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	if s := ByName(name); s != nil {
		return *s
	}
	return Statuses.Pending
}

// CanTransition reports whether a status change respects the stage ordering.
// TERMINAL is a sink: nothing transitions out of it. NEW and ACTIVE may move
// in either direction (send back to queue is a legitimate kitchen action).
func CanTransition(from, to Status) bool {
	return from.Stage() != StageTerminal
}
