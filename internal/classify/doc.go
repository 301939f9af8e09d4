// Package classify turns raw stream frames into typed messages.
//
// Classification is structural: a frame is a price update because it has a
// non-empty string symbol and a finite numeric price, not because its type
// tag says so. Predicates run in a fixed priority order and the first match
// wins; frames matching nothing are still delivered, as "other" (valid JSON)
// or "raw" (undecodable), so nothing is silently lost.
package classify
