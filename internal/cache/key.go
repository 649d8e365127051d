package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"runtime"
)

// Key derives a cache key from a function's identity and its arguments.
// The function name comes from the runtime symbol table; arguments are
// rendered with %#v and hashed, so keys stay short and equal arguments
// always produce equal keys.
func Key(fn any, args ...any) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%#v", args)
	return funcName(fn) + ":" + hex.EncodeToString(h.Sum(nil))
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Sprintf("%T", fn)
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("%T", fn)
}
