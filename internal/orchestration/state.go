package orchestration

// LoopState is the immutable per-run bookkeeping threaded through the
// turn loop. Methods return a modified copy; frames never share state.
type LoopState struct {
	Depth          int
	TotalToolCalls int
}

// IncrementDepth returns the state for the next recursion frame.
func (s LoopState) IncrementDepth() LoopState {
	s.Depth++
	return s
}

// AddToolCalls records tool invocations observed in a turn.
func (s LoopState) AddToolCalls(n int) LoopState {
	s.TotalToolCalls += n
	return s
}
