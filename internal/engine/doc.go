// Package engine implements the adaptive learning core: a spaced-repetition
// card scheduler, topic weakness analysis, assessment question selection, and
// remediation plan synthesis.
//
// Everything in this package is a pure computation over snapshots handed in by
// the caller. Nothing here touches storage, the network, or the system clock;
// time and randomness are always injected so results are reproducible in tests.
package engine
