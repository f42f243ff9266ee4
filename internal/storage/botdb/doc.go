// Package botdb implements the per-account durable state store.
//
// A Database holds one account's secrets, identifier sets, the risky-app
// expiry map, the three-tier background redemption queue and arbitrary
// keyed sub-documents, all persisted to a single JSON file through
// jsonfile.File.
//
// Every effective mutation schedules an asynchronous write-back of the whole
// document. Writes are single-flight: at most one writer goroutine runs per
// database and it keeps writing fresh snapshots while mutations arrive, so a
// stale snapshot never replaces a newer file. Flush waits for pending writes.
//
// Queue tiers are locked individually. Operations spanning tiers lock them
// through tierLocker, always High, then Normal, then Low.
//
// Lifecycle:
//
//	CreateOrLoad -> Ready -> Close -> Disposed
//
// A load that fails (empty file, parse failure, validation failure) returns
// no database.
package botdb
