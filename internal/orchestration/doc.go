// Package orchestration drives ambience planning runs: the recursive
// dialog loop against the model session, aggregation of tool results
// into a plan, and supervised per-session task execution with mailbox
// delivery of terminal outcomes.
package orchestration
