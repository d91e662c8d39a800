// Package engine implements sequential short-circuit evaluation of gate pipelines.
//
// Architecture:
//
// pipeline.go - Core pipeline engine (Pipeline, ordered evaluation, outcome normalization)
//
// The engine owns an ordered list of gate references and a navigation target,
// resolves each gate through a registry.Registry, and stops at the first gate
// that denies the request. Denials are normalized into a domain.Result; when the
// denial is a redirect, the original destination is attached as a resume query
// parameter so navigation can continue after remediation.
package engine
