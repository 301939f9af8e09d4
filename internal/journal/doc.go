// Package journal is the optional Postgres sink for the update stream. It
// subscribes to the dispatcher like any other consumer, batches classified
// price updates and raw diagnostic frames, and flushes them with pgx batch
// inserts on a size threshold or a timer, whichever comes first.
package journal
