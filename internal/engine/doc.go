// Package engine contains the economy simulation of Signal Foundry.
// This is the heartbeat of the beacon.
//
// ARCHITECTURAL RULE: every core operation reconciles elapsed production
// first, works on a private copy of the state, and publishes the copy only
// when the operation succeeds. Failed operations leave no trace.
package engine
