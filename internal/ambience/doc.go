// Package ambience defines the domain model for in-cabin ambience
// orchestration: the environment snapshot captured from the vehicle, the
// safety mode derived from speed, and the composite ambience plan
// (music, light, narrative, scent, massage) produced by the agent loop.
//
// All types are plain immutable values. Validation happens at
// construction; a value that exists is a value that is in range.
package ambience
