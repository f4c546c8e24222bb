// Package registry persists workspace records in SQLite. It is the
// durable source of truth for which directories are currently live
// workspace container references.
//
// The orchestrator core only ever reads from the registry (the
// ContainerRefExists oracle consulted by the orphan sweep); the write
// side — recording created workspaces, clearing container references,
// archiving on close — belongs to the CLI acting as the workspace
// caller.
package registry
