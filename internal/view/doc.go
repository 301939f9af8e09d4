// Package view holds the consumer-side state that the stream reconciles into:
// the watched-symbol price board and the bot-status panel.
//
// Each view owns its local collection and re-derives it from classified
// messages plus its own prior state. Price updates merge by key and never
// insert unwatched symbols; bot-status snapshots replace the panel wholesale.
// Values are kept, not cleared, across disconnects.
package view
