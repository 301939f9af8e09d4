// Package database provides the PostgreSQL connection pool for the journal
// sink. The journal owns two tables: price_updates (classified stream ticks)
// and raw_frames (undecodable frames kept verbatim for diagnostics).
package database
