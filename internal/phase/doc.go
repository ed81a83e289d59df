// Package phase advances the planning pipeline of a run: init → brainstorm →
// specify → clarify → architecture → decompose → execute.
//
// Transitions are triggered when a phase-producing agent completes, but they
// are gated on artifacts, not on the agent's word: a phase only advances if
// its required artifact exists on disk under the run's specs directory. The
// artifact contract is verified twice, once up front and again inside the
// locked store update immediately before the new phase is committed, closing
// the race between artifact production and hook invocation. When
// verification fails the phase is left unchanged and the caller may retry.
//
// The specify phase counts NEEDS-CLARIFICATION markers in the specification:
// above the configured threshold the pipeline detours through clarify,
// otherwise clarify is recorded in skipped_phases. Clarify loops on itself
// until the marker count drops to the threshold; the self-loop is an
// expected outcome, not an error.
package phase
