package compiler

import (
	"fmt"
	"strings"
)

// Disassemble renders bc as human-readable text: the top-level chunk
// followed by each function/lambda chunk, labeled by its index into
// Functions (the same index value.Closure.Entry points at).
func Disassemble(bc *Bytecode) string {
	var b strings.Builder
	fmt.Fprintln(&b, "; top-level")
	disassembleChunk(&b, bc.Instructions)

	for i, fn := range bc.Functions {
		fmt.Fprintf(&b, "\n; function %d\n", i)
		disassembleChunk(&b, fn)
	}
	return b.String()
}

func disassembleChunk(b *strings.Builder, ins Instructions) {
	offset := 0
	for offset < len(ins) {
		op := Opcode(ins[offset])
		def, err := Get(op)
		if err != nil {
			fmt.Fprintf(b, "%04d ERROR %s\n", offset, err)
			offset++
			continue
		}

		operands, width := readOperands(def, ins, offset+1)
		fmt.Fprintf(b, "%04d %-24s %s\n", offset, def.Name, formatOperands(operands))
		offset += 1 + width
	}
}

func readOperands(def *OpCodeDefinition, ins Instructions, start int) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	pos := start
	for i, w := range def.OperandWidths {
		switch w {
		case 2:
			operands[i] = int(ReadUint16(ins, pos))
		case 1:
			operands[i] = int(ins[pos])
		}
		pos += w
	}
	return operands, pos - start
}

func formatOperands(operands []int) string {
	parts := make([]string, len(operands))
	for i, o := range operands {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return strings.Join(parts, " ")
}
