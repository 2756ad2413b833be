package announce

import (
	"fmt"
	"strings"
)

// templates holds the message variants per rule bucket. Selection within a
// bucket rotates round-robin so repeated announcements in the same context
// are not verbatim duplicates.
var templates = map[Rule][]string{
	RuleStandard: {
		"New order for {table}. The dish is {items}, {price}.",
		"Order up for {table}. {items}, {price}.",
		"Incoming order for {table}. The dish is {items}, {price}.",
	},
	RuleUrgent: {
		"Rush order! {items} for {table}. Priority!",
		"Priority order! {items} for {table}, front of the line.",
	},
	RuleBusy: {
		"Kitchen alert! {items} for {table}.",
		"Heads up! New order, {items} for {table}.",
	},
	RuleLarge: {
		"Big order coming in. {items} for {table}.",
		"Large order for {table}. {items}.",
	},
	RuleQuiet: {
		"Gentle reminder. {items} for {table}.",
		"New order, no rush. {items} for {table}.",
	},
}

// VariantCount returns how many template variants a rule bucket rotates over.
func VariantCount(rule Rule) int {
	return len(templates[rule])
}

func renderTemplate(tmpl, items, table string, price float64, note string) string {
	text := strings.NewReplacer(
		"{items}", items,
		"{table}", table,
		"{price}", fmt.Sprintf("%.2f", price),
	).Replace(tmpl)

	if strings.TrimSpace(note) != "" {
		text += " With order note " + note + "."
	}
	return text
}
