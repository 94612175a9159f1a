// Package runtime implements the runtime-assisted emitter (spec.md §4.9,
// C4b): it turns a Core module into one target-language source file that
// calls into a small runtime library for carrier dispatch. Grounded on the
// teacher's internal/effects capability registry (Registry map[effect]map[op],
// RegisterOp/init pattern) and internal/builtins/register.go's native
// primitive catalogue, generalized from "native Go function to interpret"
// to "native source snippet to emit into the runtime library preamble".
package runtime

import (
	"fmt"
	"sort"
	"strings"
)

// Native is one entry of the runtime's native primitive library: a single
// target-language function backing an effect operation or a stdlib
// primitive (int arithmetic, char equality, string<->list conversion,
// printing — spec.md §4.9's closing paragraph).
type Native struct {
	Effect string
	Op     string
	Source string // target-language function body, emitted verbatim
}

var (
	natives     = map[string]map[string]Native{}
	nativeOrder []string
)

// RegisterNative adds one native primitive to the library. Mirrors the
// teacher's effects.RegisterOp init-time registration discipline.
func RegisterNative(effect, op, source string) {
	if _, ok := natives[effect]; !ok {
		natives[effect] = map[string]Native{}
		nativeOrder = append(nativeOrder, effect)
	}
	natives[effect][op] = Native{Effect: effect, Op: op, Source: source}
}

func init() {
	RegisterNative("IO", "print", "function __io_print(s) { process.stdout.write(s); return __unit; }")
	RegisterNative("IO", "println", "function __io_println(s) { console.log(s); return __unit; }")
	RegisterNative("IO", "readLine", "function __io_readLine() { return __readlineSync(); }")
	RegisterNative("FS", "readFile", "function __fs_readFile(path) { return __fsReadFileSync(path); }")
	RegisterNative("FS", "writeFile", "function __fs_writeFile(path, contents) { __fsWriteFileSync(path, contents); return __unit; }")
	RegisterNative("Clock", "now", "function __clock_now() { return Date.now(); }")
	RegisterNative("Clock", "sleep", "function __clock_sleep(ms) { __sleepSync(ms); return __unit; }")
	RegisterNative("Prim", "int_add", "function __int_add(a, b) { return (a + b) | 0; }")
	RegisterNative("Prim", "int_sub", "function __int_sub(a, b) { return (a - b) | 0; }")
	RegisterNative("Prim", "int_mul", "function __int_mul(a, b) { return (a * b) | 0; }")
	RegisterNative("Prim", "int_div", "function __int_div(a, b) { return Math.trunc(a / b); }")
	RegisterNative("Prim", "char_eq", "function __char_eq(a, b) { return a === b; }")
	RegisterNative("Prim", "string_to_list", "function __string_to_list(s) { return Array.from(s); }")
	RegisterNative("Prim", "list_to_string", "function __list_to_string(cs) { return cs.join(''); }")
}

// LibrarySource renders the full runtime native-primitive library as
// target-language source, in a stable (effect, then op) order.
func LibrarySource() string {
	var b strings.Builder
	effects := append([]string(nil), nativeOrder...)
	sort.Strings(effects)
	for _, effect := range effects {
		ops := natives[effect]
		opNames := make([]string, 0, len(ops))
		for op := range ops {
			opNames = append(opNames, op)
		}
		sort.Strings(opNames)
		for _, op := range opNames {
			fmt.Fprintln(&b, ops[op].Source)
		}
	}
	return b.String()
}
