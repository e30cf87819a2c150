// Package conversation drives the collaboration mode of the engine: a
// bounded, strictly sequential multi-turn round between registered agents,
// followed by emergent-content synthesis and an optional cross-validation
// review pass.
package conversation
