// Package log provides structured logging for tasksync using zerolog.
//
// A single package-level Logger is configured once via Init and handed out
// to callers as component-scoped child loggers (WithComponent,
// WithCanonicalID, WithProvider) so every cycle's log lines carry enough
// context to follow one mapping or one provider across a run.
package log
