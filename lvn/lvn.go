// Package lvn implements local value numbering with copy propagation
// over a single basic block, and trivial dead code elimination over a
// whole function — grounded line-for-line on the original
// lvn.py:lvn_block and tdce.py.
package lvn

import (
	"sort"

	"github.com/bril-go/brilgo/cfg"
	"github.com/bril-go/brilgo/ir"
)

// commutative is the set of ops whose arguments LVN canonicalizes by
// sorting, so that e.g. `add a b` and `add b a` hash to the same
// value number.
var commutative = map[string]bool{
	"add": true, "mul": true, "eq": true, "and": true, "or": true,
}

// valueKey is the canonicalized (op, operand-representation) tuple
// used to look up previously computed values. Operands are strings:
// either a value number rendered as a '#'-prefixed token or a
// variable name for arguments with no known value number yet. For
// `const`, which has no operands, value carries the literal payload so
// two different constants never collide on the same key.
type valueKey struct {
	op    string
	args  string // joined, already canonicalized
	value string
}

func canonicalize(op string, args []string, value []byte) valueKey {
	if commutative[op] {
		sorted := append([]string(nil), args...)
		sort.Strings(sorted)
		args = sorted
	}
	joined := ""
	for i, a := range args {
		if i > 0 {
			joined += ","
		}
		joined += a
	}
	return valueKey{op: op, args: joined, value: string(value)}
}

type valueEntry struct {
	num  int
	dest string
}

// Block runs LVN over one basic block's instructions and returns a
// rewritten instruction slice with redundant computations replaced by
// `id` copies and copies propagated to their ultimate source,
// following lvn.py:lvn_block exactly, including its
// kill-before-lookup rule: a destination's stale value-number mapping
// is dropped before the defining instruction is looked up, so an
// instruction can never be considered redundant with respect to a
// value it is about to overwrite.
func Block(instrs []*ir.Instruction) []*ir.Instruction {
	valTable := map[valueKey]valueEntry{}
	var2num := map[string]int{}
	num2var := map[int]string{}
	next := 0

	newBlock := make([]*ir.Instruction, 0, len(instrs))

	for _, instr := range instrs {
		if instr.IsLabel() {
			newBlock = append(newBlock, instr)
			continue
		}

		if ir.HasSideEffect(instr) {
			if len(instr.Args) > 0 {
				clone := instr.Clone()
				for i, a := range clone.Args {
					if num, ok := var2num[a]; ok {
						clone.Args[i] = num2var[num]
					}
				}
				newBlock = append(newBlock, clone)
			} else {
				newBlock = append(newBlock, instr)
			}
			continue
		}

		dest := instr.Dest

		// KILL step: a fresh write to dest invalidates its old
		// value-number mapping before anything below looks it up.
		if dest != "" {
			delete(var2num, dest)
		}

		if instr.Op == ir.OpID && dest != "" && len(instr.Args) == 1 {
			src := instr.Args[0]
			num, ok := var2num[src]
			if !ok {
				num = next
				next++
				var2num[src] = num
				num2var[num] = src
			}
			var2num[dest] = num
			newBlock = append(newBlock, &ir.Instruction{
				Op: ir.OpID, Dest: dest, Type: instr.Type,
				Args: []string{num2var[num]},
			})
			continue
		}

		argNums := make([]string, len(instr.Args))
		for i, a := range instr.Args {
			if num, ok := var2num[a]; ok {
				argNums[i] = numToken(num)
			} else {
				argNums[i] = a
			}
		}
		key := canonicalize(instr.Op, argNums, instr.Value)

		if existing, ok := valTable[key]; ok {
			if dest != "" {
				newBlock = append(newBlock, &ir.Instruction{
					Op: ir.OpID, Dest: dest, Type: instr.Type,
					Args: []string{existing.dest},
				})
				var2num[dest] = existing.num
			}
			continue
		}

		curNum := next
		next++
		valTable[key] = valueEntry{num: curNum, dest: dest}
		if dest != "" {
			var2num[dest] = curNum
			num2var[curNum] = dest
		}

		newArgs := make([]string, len(argNums))
		for i, a := range argNums {
			if v, ok := num2var[tokenToNum(a)]; ok {
				newArgs[i] = v
			} else {
				newArgs[i] = a
			}
		}
		newInstr := &ir.Instruction{Op: instr.Op, Args: newArgs}
		if dest != "" {
			newInstr.Dest = dest
			newInstr.Type = instr.Type
		}
		if instr.Op == ir.OpConst && len(instr.Value) > 0 {
			newInstr.Value = instr.Value
		}
		newBlock = append(newBlock, newInstr)
	}

	return newBlock
}

// numToken/tokenToNum give value numbers a string representation that
// can never collide with a real variable name, since Bril identifiers
// never begin with '#'.
func numToken(n int) string { return "#" + itoa(n) }

func tokenToNum(tok string) int {
	if len(tok) == 0 || tok[0] != '#' {
		return -1
	}
	n := 0
	for _, c := range tok[1:] {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// FunctionLVN applies Block to every basic block of fn's instruction
// stream, flattening the result back into a single instruction list —
// grounded on lvn.py's local_value_numbering.
func FunctionLVN(fn *ir.Function) {
	blocks := cfg.FormBasicBlocks(fn.Instrs)
	var out []*ir.Instruction
	for _, b := range blocks {
		out = append(out, Block(b.Instrs)...)
	}
	fn.Instrs = out
}
