// Package pacing gates every remote fetch the engine issues.
//
// The Governor enforces two independent constraints:
//
// Hard hourly quota:
//   - A rolling one-hour window caps total request volume
//   - Exhaustion denies immediately (ErrQuotaExhausted); nothing is queued
//
// Soft randomized cadence:
//   - Consecutive requests are separated by a delay drawn uniformly from
//     [MinDelay, MaxDelay]
//   - The caller cooperatively suspends inside Acquire until the delay has
//     elapsed; no request may be issued before the wait completes
//
// Each crawl caller owns its own Governor instance; the quota is
// per-session, not global. The clock, sleep function and randomness source
// are injectable so pacing-bound tests run deterministically.
package pacing
