// Package tools implements the cabin-control tools exposed to the
// model: music recommendation and playback, ambient lighting, scent,
// seat massage and narration.
//
// Handlers are deterministic: they derive their output from the tool
// arguments plus the session's environment snapshot. Device IO happens
// downstream, after the aggregated plan passes the safety policy.
//
// Every handler receives the session ID explicitly; there is no
// ambient session state.
package tools
