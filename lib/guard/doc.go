// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package guard provides evaluators for guarded content in CYOA
// archives.
//
// A guard names a function id and carries argument bytes. Archives
// produced by the story compiler expect those ids to resolve to
// functions in an embedded module; this package resolves them instead
// from a [Table] of Go functions, some of which may be small Lua
// scripts run by a shared [Lua] interpreter.
//
// Guard tables are usually authored as JSONC files and loaded with
// [ReadTableFile]:
//
//	{
//	  // Unknown ids hide their content.
//	  "fallback": false,
//	  "flags": {"has_lamp": true},
//	  "guards": [
//	    {"id": 1, "value": true},
//	    {"id": 7, "lua": "return flags.has_lamp and arg == 'lamp'"},
//	  ],
//	}
//
// Every evaluator here satisfies archive.GuardEvaluator.
package guard
