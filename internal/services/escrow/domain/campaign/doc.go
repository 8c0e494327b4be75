// Package campaign holds the campaign aggregate: its folded state, the
// milestone schedule rules, and the decider for launch and closure.
//
// State is treated as an immutable value once folded. Fold returns a new
// State and never mutates maps or slices reachable from its input, so a
// snapshot handed to a reader stays valid while writers fold newer events.
package campaign
