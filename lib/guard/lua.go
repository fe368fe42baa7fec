// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	lua "github.com/Shopify/go-lua"
)

// compiledGuardsGlobal holds the compiled guard chunks, keyed by
// function id.
const compiledGuardsGlobal = "__cyoa_guards"

// Lua runs guard functions written in Lua. All scripts share one
// interpreter, so globals a script sets persist between evaluations.
//
// Before each call the interpreter's globals hold:
//
//	arg    the guard argument as a Lua string
//	flags  a table of the flags given to NewLua
//
// A script's first return value is the decision, using Lua truthiness.
// A script that raises an error counts as false and is logged.
type Lua struct {
	mutex  sync.Mutex
	state  *lua.State
	logger *slog.Logger
}

// NewLua creates an interpreter with the standard libraries and the
// given flags. A nil logger discards script errors.
func NewLua(flags map[string]bool, logger *slog.Logger) *Lua {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	state := lua.NewState()
	lua.OpenLibraries(state)

	state.NewTable()
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		state.PushBoolean(flags[name])
		state.SetField(-2, name)
	}
	state.SetGlobal("flags")

	state.NewTable()
	state.SetGlobal(compiledGuardsGlobal)

	return &Lua{state: state, logger: logger}
}

// Compile loads source as the body of guard functionID and returns a
// Func that runs it. Syntax errors are reported here rather than at
// evaluation time.
func (interpreter *Lua) Compile(functionID uint32, source string) (Func, error) {
	interpreter.mutex.Lock()
	defer interpreter.mutex.Unlock()

	state := interpreter.state
	defer state.SetTop(0)
	if err := lua.LoadString(state, source); err != nil {
		return nil, fmt.Errorf("compiling guard %d: %w", functionID, err)
	}
	state.Global(compiledGuardsGlobal)
	state.Insert(-2)
	state.RawSetInt(-2, int(functionID))

	return func(argument []byte) bool {
		result, err := interpreter.Call(functionID, argument)
		if err != nil {
			interpreter.logger.Warn("guard script failed",
				"function_id", functionID,
				"error", err,
			)
			return false
		}
		return result
	}, nil
}

// Call runs the compiled guard functionID with argument and returns
// its decision.
func (interpreter *Lua) Call(functionID uint32, argument []byte) (bool, error) {
	interpreter.mutex.Lock()
	defer interpreter.mutex.Unlock()

	state := interpreter.state
	defer state.SetTop(0)

	state.PushString(string(argument))
	state.SetGlobal("arg")

	state.Global(compiledGuardsGlobal)
	state.RawGetInt(-1, int(functionID))
	if !state.IsFunction(-1) {
		return false, fmt.Errorf("guard %d is not compiled", functionID)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("running guard %d: %w", functionID, err)
	}
	return state.ToBoolean(-1), nil
}
