package rule

import (
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// removedGlobals are base-library functions that can load code or reach
// outside the sandbox.
var removedGlobals = []string{
	"dofile",     // Load and execute file
	"loadfile",   // Load file as function
	"load",       // Load chunk from a function
	"loadstring", // Load string as function
	"require",    // Module loading
	"module",     // Module definition
	"getfenv",    // Environment access
	"setfenv",    // Environment replacement
	"collectgarbage",
	"_printregs",
	"_G",     // Shared globals table
	"rawset", // Bypasses read-only library tables
}

// lockedMeta is what getmetatable reports for protected tables.
const lockedMeta = "locked"

// newSandboxedState creates a Lua state with only safe libraries opened.
// It returns the state and the frozen base table every evaluation
// environment falls back to.
func newSandboxedState(logger *slog.Logger) (*lua.LState, *lua.LTable) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})

	// Open safe libraries
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Note: These are intentionally NOT opened:
	// - io (file system access)
	// - os (system calls, execute)
	// - debug (can bypass sandbox)
	// - package (can load arbitrary modules)
	// - channel, coroutine (rules run to completion)

	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	installPrint(L, logger)
	return L, freezeGlobals(L)
}

// freezeGlobals copies the globals into a new table, replacing every
// library table with a read-only view. Strings get a new locked metatable
// indexing the read-only string library, so method calls cannot reach the
// writable original.
func freezeGlobals(L *lua.LState) *lua.LTable {
	base := L.NewTable()
	L.G.Global.ForEach(func(k, v lua.LValue) {
		if t, ok := v.(*lua.LTable); ok {
			v = readOnly(L, k.String(), t)
		}
		base.RawSet(k, v)
	})

	if lib, ok := base.RawGetString(lua.StringLibName).(*lua.LTable); ok {
		mt := L.NewTable()
		mt.RawSetString("__index", lib)
		mt.RawSetString("__metatable", lua.LString(lockedMeta))
		L.SetMetatable(lua.LString(""), mt)
	}
	return base
}

// readOnly returns an empty proxy that reads through to t and raises on
// assignment.
func readOnly(L *lua.LState, name string, t *lua.LTable) *lua.LTable {
	proxy := L.NewTable()
	meta := L.NewTable()
	meta.RawSetString("__index", t)
	meta.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s is read-only", name)
		return 0
	}))
	meta.RawSetString("__metatable", lua.LString(lockedMeta))
	L.SetMetatable(proxy, meta)
	return proxy
}

// installPrint replaces print with a version that writes to the logger.
func installPrint(L *lua.LState, logger *slog.Logger) {
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Info("rule print", "text", strings.Join(parts, "\t"))
		return 0
	}))
}

// newEnv creates a per-evaluation environment table whose misses fall back
// to base. Assignments land in env and die with it.
func newEnv(L *lua.LState, base *lua.LTable) *lua.LTable {
	env := L.NewTable()
	meta := L.NewTable()
	meta.RawSetString("__index", base)
	meta.RawSetString("__metatable", lua.LString(lockedMeta))
	L.SetMetatable(env, meta)
	return env
}

// describe renders a Lua error for logs without the Go stack.
func describe(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != nil {
		return fmt.Sprint(apiErr.Object)
	}
	return err.Error()
}
