/*
Package engine implements the reconciliation core: the per-cycle sequence
that reconciles two or more remote task providers into one logical task
list.

# Cycle

	Orchestrator -> Lock -> Load State -> Prune TTL
	  -> Collect Snapshots (parallel) -> Cold-Start (first run only)
	  -> Deletion Resolver -> Orphan Sweep -> Field-Level Merger
	  -> Fan-Out Writer -> Persist State -> Release Lock -> emit SyncReport

Each stage is its own file:

  - collector.go  — C4, parallel per-provider (changes, full-list) fetch
  - coldstart.go  — C5, first-run title+notes grouping
  - deletion.go   — C6, tombstone-based delete-wins resolution
  - merge.go      — C7, per-field last-write-wins against the baseline
  - fanout.go     — C8, create/update/recreate writes per mapping
  - engine.go     — C9, the orchestrator tying the above together

Within one cycle the engine is single-threaded beyond the parallel snapshot
fetch: write fan-out is sequential per mapping so tombstone and baseline
state never needs cross-goroutine synchronization.
*/
package engine
