// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"
)

// File is the on-disk shape of a guard table.
type File struct {
	// Fallback is the result for ids not listed in Guards.
	Fallback bool `json:"fallback"`

	// Flags are exposed to Lua guards as the global table "flags".
	Flags map[string]bool `json:"flags,omitempty"`

	Guards []FileGuard `json:"guards"`
}

// FileGuard is one guard entry. Exactly one of Value and Lua is set.
type FileGuard struct {
	ID    uint32 `json:"id"`
	Value *bool  `json:"value,omitempty"`
	Lua   string `json:"lua,omitempty"`
}

// ParseTable strips JSONC comments and trailing commas from data and
// builds the table it describes. Lua entries are compiled into one
// interpreter that logs script errors to logger.
func ParseTable(data []byte, logger *slog.Logger) (*Table, error) {
	var file File
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing guard table: %w", err)
	}
	return file.Build(logger)
}

// ReadTableFile reads and parses a JSONC guard table from disk.
func ReadTableFile(path string, logger *slog.Logger) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	table, err := ParseTable(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Build validates the file and constructs its table. The Lua
// interpreter is only created when some entry needs it.
func (file *File) Build(logger *slog.Logger) (*Table, error) {
	table := NewTable(file.Fallback)
	seen := make(map[uint32]bool, len(file.Guards))
	var interpreter *Lua

	for index, entry := range file.Guards {
		if seen[entry.ID] {
			return nil, fmt.Errorf("guards[%d]: duplicate id %d", index, entry.ID)
		}
		seen[entry.ID] = true

		switch {
		case entry.Value != nil && entry.Lua != "":
			return nil, fmt.Errorf("guards[%d]: id %d sets both value and lua", index, entry.ID)
		case entry.Value != nil:
			table.Set(entry.ID, Constant(*entry.Value))
		case entry.Lua != "":
			if interpreter == nil {
				interpreter = NewLua(file.Flags, logger)
			}
			function, err := interpreter.Compile(entry.ID, entry.Lua)
			if err != nil {
				return nil, fmt.Errorf("guards[%d]: %w", index, err)
			}
			table.Set(entry.ID, function)
		default:
			return nil, fmt.Errorf("guards[%d]: id %d needs value or lua", index, entry.ID)
		}
	}
	return table, nil
}
