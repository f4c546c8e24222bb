// Package workspace implements the multi-repository workspace
// orchestrator: transactional creation of one worktree per repository
// with best-effort rollback, idempotent existence-ensuring after a
// process restart, legacy single-repository layout migration,
// merge-or-discard closing with conflict surfacing, and orphan
// sweeping against the persisted registry.
//
// Within one call, repositories are always processed sequentially in
// caller-supplied order. Rollback on partial creation mirrors creation
// order, and merge closing needs a deterministic stopping point on the
// first conflict; neither holds under per-repository parallelism.
// Different workspaces may be operated on concurrently — the Manager
// keeps no cross-workspace state beyond the filesystem and the
// registry.
package workspace
