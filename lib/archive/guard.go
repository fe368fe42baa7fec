// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

// GuardEvaluator decides whether guarded content is shown. Evaluate
// receives the guard's function id and its argument bytes, which alias
// archive data and must not be retained or modified. Implementations
// must be safe for concurrent use when one archive serves several
// goroutines.
type GuardEvaluator interface {
	Evaluate(functionID uint32, argument []byte) bool
}

// GuardFunc adapts a function to [GuardEvaluator].
type GuardFunc func(functionID uint32, argument []byte) bool

// Evaluate calls function(functionID, argument).
func (function GuardFunc) Evaluate(functionID uint32, argument []byte) bool {
	return function(functionID, argument)
}

// DenyGuards rejects every guard, so only unguarded content is shown.
// It is the evaluator used when OpenConfig.Guards is nil.
var DenyGuards GuardEvaluator = GuardFunc(func(uint32, []byte) bool { return false })

// AllowGuards accepts every guard.
var AllowGuards GuardEvaluator = GuardFunc(func(uint32, []byte) bool { return true })
