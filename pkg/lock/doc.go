// Package lock provides process-level mutual exclusion on a sync engine's
// state directory, so two engine invocations never run a cycle against the
// same state.json concurrently.
//
// The lock is a plain JSON file recording the holder's pid and acquire
// time rather than an OS advisory lock: stale-lock recovery needs to
// inspect who holds the lock and decide whether that process is still
// alive, which flock(2)-style primitives don't expose.
package lock
