// Package provider defines the narrow three-method capability set every
// remote task provider implements so the engine never imports a
// provider's HTTP client directly.
//
// Dispatch is by interface, not by a class hierarchy: any concrete
// provider value — a Google Tasks client, a Microsoft To Do client, or the
// in-memory memsim stand-in used in tests — satisfies Provider and can be
// passed to the engine interchangeably.
package provider
