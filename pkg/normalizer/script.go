package normalizer

import (
	"context"
	"fmt"
	"sort"
	"time"

	starlarkjson "go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// DefaultScriptTimeout bounds a single script normalizer call.
const DefaultScriptTimeout = 5 * time.Second

// scriptEntryPoint is the function every normalizer script must define.
const scriptEntryPoint = "normalize"

// ScriptNormalizer runs a Starlark script that defines
//
//	def normalize(value, context_id):
//	    return ...
//
// The script is compiled once; every call runs on a fresh thread with print
// suppressed and the timeout enforced.
type ScriptNormalizer struct {
	name    string
	fn      starlark.Callable
	timeout time.Duration
}

// NewScriptNormalizer compiles script and checks that it defines normalize.
// A zero timeout selects DefaultScriptTimeout.
func NewScriptNormalizer(name, script string, timeout time.Duration) (*ScriptNormalizer, error) {
	if timeout == 0 {
		timeout = DefaultScriptTimeout
	}

	thread := newThread(name)
	globals, err := starlark.ExecFile(thread, name+".star", script, predeclared())
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", name, err)
	}

	fn, ok := globals[scriptEntryPoint].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("script %s does not define %s(value, context_id)", name, scriptEntryPoint)
	}

	return &ScriptNormalizer{
		name:    name,
		fn:      fn,
		timeout: timeout,
	}, nil
}

// Name returns the script name.
func (s *ScriptNormalizer) Name() string {
	return s.name
}

// Normalize converts value to Starlark, calls normalize and converts the
// result back.
func (s *ScriptNormalizer) Normalize(ctx context.Context, value interface{}, contextID string) (interface{}, error) {
	arg, err := toStarlarkValue(value)
	if err != nil {
		return nil, fmt.Errorf("failed to convert value: %w", err)
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	thread := newThread(s.name)

	type result struct {
		value interface{}
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		out, err := starlark.Call(thread, s.fn, starlark.Tuple{arg, starlark.String(contextID)}, nil)
		if err != nil {
			resultCh <- result{err: fmt.Errorf("starlark execution failed: %w", err)}
			return
		}
		v, err := fromStarlarkValue(out)
		resultCh <- result{value: v, err: err}
	}()

	select {
	case <-evalCtx.Done():
		thread.Cancel(evalCtx.Err().Error())
		return nil, fmt.Errorf("script %s: execution timeout after %v", s.name, s.timeout)
	case r := <-resultCh:
		return r.value, r.err
	}
}

// RegisterScripts compiles every script and registers it under its name.
// Scripts are registered in name order; the first failure stops registration.
func RegisterScripts(r *Registry, scripts map[string]string, timeout time.Duration) error {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sn, err := NewScriptNormalizer(name, scripts[name], timeout)
		if err != nil {
			return err
		}
		if err := r.Register(name, sn); err != nil {
			return err
		}
	}
	return nil
}

func newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: "normalizer/" + name,
		Print: func(_ *starlark.Thread, msg string) {
			// Suppress print for security
		},
	}
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"json":   starlarkjson.Module,
	}
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case starlark.Value:
		return val, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int32:
		return starlark.MakeInt64(int64(val)), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float32:
		return starlark.Float(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []string:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			list[i] = starlark.String(item)
		}
		return starlark.NewList(list), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]string:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			if err := dict.SetKey(starlark.String(k), starlark.String(v)); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := toStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case Pather:
		return starlark.String(val.Path()), nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			goItem, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = goItem
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
