// Package integrity seals ledger events into a tamper-evident chain.
//
// Every stored event carries a content hash, the chain hash of the previous
// event of the same campaign, its own chain hash, and an HMAC signature of
// that chain hash under a per-campaign key derived from a root key.
// Verification walks a campaign's events and recomputes all three.
package integrity
