/*
Package types defines the core data structures shared across tasksync.

This package holds the domain model the reconciliation engine operates on:
the canonical task shape every provider is diffed against, the mapping that
links one logical task to its per-provider ids, tombstones that suppress
recreation after a delete, and the persisted sync state that ties them
together. These types cross every package boundary in the engine and are
the vocabulary the provider adapters, state store, and engine package all
share.
*/
package types
