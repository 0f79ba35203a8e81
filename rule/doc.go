// Package rule implements the rule engine (C9): compiled rules, the
// per-tick activation/refraction cycle, salience/specificity ordering, and
// the quiescence loop that drives a working world to a fixpoint.
package rule
