// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"slices"
	"sync"

	"github.com/bureau-foundation/cyoa/lib/archive"
)

// Func decides one guard given its argument bytes. The bytes alias
// archive data and must not be retained.
type Func func(argument []byte) bool

// Constant returns a Func that ignores its argument.
func Constant(value bool) Func {
	return func([]byte) bool { return value }
}

// Table maps guard function ids to Funcs. Ids without an entry
// evaluate to the fallback. A Table is safe for concurrent use.
type Table struct {
	mutex     sync.RWMutex
	functions map[uint32]Func
	fallback  bool
}

var _ archive.GuardEvaluator = (*Table)(nil)

// NewTable returns an empty table whose unknown ids evaluate to
// fallback.
func NewTable(fallback bool) *Table {
	return &Table{
		functions: make(map[uint32]Func),
		fallback:  fallback,
	}
}

// Set registers function under functionID, replacing any previous
// entry.
func (table *Table) Set(functionID uint32, function Func) {
	table.mutex.Lock()
	defer table.mutex.Unlock()
	table.functions[functionID] = function
}

// Evaluate runs the function registered for functionID, or returns the
// fallback.
func (table *Table) Evaluate(functionID uint32, argument []byte) bool {
	table.mutex.RLock()
	function, ok := table.functions[functionID]
	fallback := table.fallback
	table.mutex.RUnlock()
	if !ok {
		return fallback
	}
	return function(argument)
}

// Fallback reports the result for unregistered ids.
func (table *Table) Fallback() bool {
	table.mutex.RLock()
	defer table.mutex.RUnlock()
	return table.fallback
}

// IDs returns the registered function ids in ascending order.
func (table *Table) IDs() []uint32 {
	table.mutex.RLock()
	ids := make([]uint32, 0, len(table.functions))
	for id := range table.functions {
		ids = append(ids, id)
	}
	table.mutex.RUnlock()
	slices.Sort(ids)
	return ids
}
