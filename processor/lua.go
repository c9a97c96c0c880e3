package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/thisisjab/sieve/entity"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	luajson "layeh.com/gopher-json"
)

type LuaRecordProcessorConfig struct {
	Name       string `yaml:"-"`
	ScriptPath string `yaml:"script-path"`
}

// LuaRecordProcessor rewrites records with a lua script.
// Provided script MUST contain a function named `process_record` which takes
// the record encoded as a JSON string and returns a table: the new record.
// Returning nil keeps the record unchanged.
// Note that user can have access to JSON helper using `local json = require("json")`
type LuaRecordProcessor struct {
	cfg   LuaRecordProcessorConfig
	proto *lua.FunctionProto
	pool  *sync.Pool
}

func NewLuaRecordProcessor(cfg LuaRecordProcessorConfig) (*LuaRecordProcessor, error) {
	f, err := os.Open(cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open lua script: %w", err)
	}
	defer f.Close()

	chunk, err := parse.Parse(f, cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("cannot parse lua script: %w", err)
	}

	proto, err := lua.Compile(chunk, cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("cannot compile lua script: %w", err)
	}

	lp := &LuaRecordProcessor{cfg: cfg, proto: proto}

	// Build one VM up front so that a broken script fails here, not on the
	// first record.
	L, err := lp.newState()
	if err != nil {
		return nil, err
	}

	lp.pool = &sync.Pool{
		New: func() any {
			L, err := lp.newState()
			if err != nil {
				return err
			}
			return L
		},
	}
	lp.pool.Put(L)

	return lp, nil
}

func (lp *LuaRecordProcessor) newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // Don't load anything by default
	})

	// Manually open only the safe libraries
	// We skip 'os' and 'io' to prevent system commands/file access
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},  // Allows 'require'
		{lua.BaseLibName, lua.OpenBase},     // Allows 'print', 'pairs', etc.
		{lua.TabLibName, lua.OpenTable},     // Allows 'table.insert', etc.
		{lua.StringLibName, lua.OpenString}, // Allows string manipulation
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// Pre-register the JSON module in this VM
	// This allows the user to do: local json = require("json")
	luajson.Preload(L)

	L.Push(L.NewFunctionFromProto(lp.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, fmt.Errorf("cannot run lua script: %w", err)
	}

	if L.GetGlobal("process_record").Type() != lua.LTFunction {
		L.Close()
		return nil, errors.New("lua script does not define a `process_record` function")
	}

	return L, nil
}

func (lp *LuaRecordProcessor) Name() string {
	return lp.cfg.Name
}

func (lp *LuaRecordProcessor) Process(record entity.Record) (entity.Record, error) {
	v := lp.pool.Get()
	L, ok := v.(*lua.LState)
	if !ok {
		err, _ := v.(error)
		return record, fmt.Errorf("cannot create lua state: %w", err)
	}
	defer lp.pool.Put(L)

	data, err := json.Marshal(record)
	if err != nil {
		return record, fmt.Errorf("cannot encode record: %w", err)
	}

	err = L.CallByParam(lua.P{
		Fn:      L.GetGlobal("process_record"),
		NRet:    1,
		Protect: true,
	}, lua.LString(string(data)))

	if err != nil {
		return record, fmt.Errorf("lua script error: %w", err)
	}

	ret := L.Get(-1)
	// Clean up stack IMMEDIATELY after extraction
	L.Pop(1)

	switch v := ret.(type) {
	case *lua.LTable:
		return luaTableToMap(v), nil
	case *lua.LNilType:
		return record, nil
	default:
		return record, fmt.Errorf("process_record must return a table, got %s", ret.Type())
	}
}

func luaTableToMap(table *lua.LTable) map[string]any {
	res := make(map[string]any)
	table.ForEach(func(key, value lua.LValue) {
		res[key.String()] = convertLuaValue(value)
	})
	return res
}

// luaTableToSlice converts a table whose keys are exactly 1..n.
func luaTableToSlice(table *lua.LTable) ([]any, bool) {
	n := table.MaxN()
	if n == 0 {
		return nil, false
	}

	count := 0
	table.ForEach(func(_, _ lua.LValue) { count++ })
	if count != n {
		return nil, false
	}

	res := make([]any, n)
	for i := 1; i <= n; i++ {
		res[i-1] = convertLuaValue(table.RawGetInt(i))
	}
	return res, true
}

func convertLuaValue(value lua.LValue) any {
	switch v := value.(type) {
	case *lua.LTable:
		if list, ok := luaTableToSlice(v); ok {
			return list
		}
		return luaTableToMap(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case lua.LBool:
		return bool(v)
	case *lua.LNilType:
		return nil
	default:
		// Fallback for types we don't explicitly handle (like functions or userdata)
		return v.String()
	}
}
