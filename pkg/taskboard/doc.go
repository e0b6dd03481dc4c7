// Package taskboard provides type-safe Go definitions and Redis schema patterns
// for the Warren task board. The task board is the shared store of task records
// that all Warren components (resolver, coordinator clients, CLI, workers) read
// and mutate.
//
// Task records are stored as Redis hashes with complex fields JSON-encoded into
// single hash fields. All keys and channels are namespaced by instance name so
// that multiple Warren instances can safely coexist on a single Redis server.
//
// The store deliberately provides no locking of its own: mutual exclusion over
// task ownership is the job of the lease coordinator, and the board remains
// usable (with weaker guarantees) when the coordinator is absent.
package taskboard
