// Package event defines the append-only ledger entries that every campaign
// aggregate is folded from, their payloads, and the canonical hashing used to
// chain them.
package event
