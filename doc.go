// Package credgraph computes a reputation score ("cred") for every
// participant and contribution in a heterogeneous, time-stamped
// contribution graph.
//
// The computation is two tightly coupled stages:
//
//	compile — a weighted contribution graph, a participant list, a
//	          time-interval sequence, and four scalar transition
//	          parameters are compiled into a row-stochastic Markov
//	          process graph (package markovgraph);
//	solve   — the resulting operator is iterated to a stationary
//	          distribution by sparse power iteration (package
//	          markovchain), then rescaled into per-node and
//	          per-participant cred (package cred).
//
// Subpackages, leaves first:
//
//	addr/         — prefix-matched address trie
//	weight/       — multiplicative node/edge weight composition over a trie
//	markovchain/  — sparse row-stochastic operator and power iteration
//	contribgraph/ — reference external-collaborator graph
//	contribgraph/fixture/ — Constructor-composed graphs for tests
//	markovgraph/  — the augmented Markov process graph builder
//	cred/         — stationary distribution to cred conversion
//
// This module does not store or edit a contribution graph, compute grain
// payouts, or render results; those are the caller's concern. See
// SPEC_FULL.md and DESIGN.md for the full module-by-module contract and
// the provenance of its design choices.
package credgraph
