package campaign

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Diff lists the observable differences between two states of the same
// campaign. Amounts compare by value, timestamps by instant. An empty result
// means the states are equivalent.
func Diff(a, b State) []string {
	var out []string
	field := func(name string, x, y any) {
		if x != y {
			out = append(out, fmt.Sprintf("%s: %v != %v", name, x, y))
		}
	}
	amount := func(name string, x, y decimal.Decimal) {
		if !x.Equal(y) {
			out = append(out, fmt.Sprintf("%s: %s != %s", name, x, y))
		}
	}

	field("id", a.ID, b.ID)
	field("created", a.Created, b.Created)
	field("status", a.Status, b.Status)
	field("close_reason", a.CloseReason, b.CloseReason)
	field("created_seq", a.CreatedSeq, b.CreatedSeq)
	field("last_seq", a.LastSeq, b.LastSeq)
	amount("goal", a.Goal, b.Goal)
	amount("raised", a.Raised, b.Raised)
	amount("released", a.Released, b.Released)
	amount("refunded", a.Refunded, b.Refunded)
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		out = append(out, fmt.Sprintf("updated_at: %s != %s", a.UpdatedAt, b.UpdatedAt))
	}

	if len(a.Milestones) != len(b.Milestones) {
		out = append(out, fmt.Sprintf("milestones: %d != %d", len(a.Milestones), len(b.Milestones)))
	} else {
		for i := range a.Milestones {
			x, y := a.Milestones[i], b.Milestones[i]
			prefix := "milestone " + x.Tier
			field(prefix+" tier", x.Tier, y.Tier)
			field(prefix+" status", x.Status, y.Status)
			field(prefix+" rejections", x.Rejections, y.Rejections)
			amount(prefix+" released", x.ReleasedAmount, y.ReleasedAmount)
		}
	}

	ids := make([]string, 0, len(a.Investments)+len(b.Investments))
	for id := range a.Investments {
		ids = append(ids, id)
	}
	for id := range b.Investments {
		if _, ok := a.Investments[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		x, okA := a.Investments[id]
		y, okB := b.Investments[id]
		if okA != okB {
			out = append(out, fmt.Sprintf("investment %s: present %t != %t", id, okA, okB))
			continue
		}
		field("investment "+id+" status", x.Status, y.Status)
		amount("investment "+id+" amount", x.Amount, y.Amount)
	}
	return out
}
