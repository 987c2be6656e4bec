package vm

import (
	"fmt"
	"math"

	"github.com/saruga/primec/internal/ir"
)

func binaryArith(op ir.Opcode, a, b uint64) uint64 {
	switch op {
	case ir.OpAddI32:
		return uint64(uint32(int32(uint32(a)) + int32(uint32(b))))
	case ir.OpAddI64:
		return uint64(int64(a) + int64(b))
	case ir.OpAddU64:
		return a + b
	case ir.OpAddF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) + math.Float32frombits(uint32(b))))
	case ir.OpAddF64:
		return math.Float64bits(math.Float64frombits(a) + math.Float64frombits(b))

	case ir.OpSubI32:
		return uint64(uint32(int32(uint32(a)) - int32(uint32(b))))
	case ir.OpSubI64:
		return uint64(int64(a) - int64(b))
	case ir.OpSubU64:
		return a - b
	case ir.OpSubF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) - math.Float32frombits(uint32(b))))
	case ir.OpSubF64:
		return math.Float64bits(math.Float64frombits(a) - math.Float64frombits(b))

	case ir.OpMulI32:
		return uint64(uint32(int32(uint32(a)) * int32(uint32(b))))
	case ir.OpMulI64:
		return uint64(int64(a) * int64(b))
	case ir.OpMulU64:
		return a * b
	case ir.OpMulF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) * math.Float32frombits(uint32(b))))
	case ir.OpMulF64:
		return math.Float64bits(math.Float64frombits(a) * math.Float64frombits(b))

	case ir.OpDivI32:
		return uint64(uint32(int32(uint32(a)) / int32(uint32(b))))
	case ir.OpDivI64:
		return uint64(int64(a) / int64(b))
	case ir.OpDivU64:
		return a / b
	case ir.OpDivF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(a)) / math.Float32frombits(uint32(b))))
	case ir.OpDivF64:
		return math.Float64bits(math.Float64frombits(a) / math.Float64frombits(b))
	}
	return 0
}

func power(op ir.Opcode, a, b uint64) (uint64, error) {
	switch op {
	case ir.OpPowI32:
		base := int32(uint32(a))
		exp := int32(uint32(b))
		if exp < 0 {
			return 0, fmt.Errorf("negative exponent in integer pow")
		}
		return uint64(uint32(intPow(int64(base), int64(exp)))), nil
	case ir.OpPowI64:
		base := int64(a)
		exp := int64(b)
		if exp < 0 {
			return 0, fmt.Errorf("negative exponent in integer pow")
		}
		return uint64(intPow(base, exp)), nil
	case ir.OpPowF32:
		return uint64(math.Float32bits(float32(math.Pow(float64(math.Float32frombits(uint32(a))), float64(math.Float32frombits(uint32(b))))))), nil
	case ir.OpPowF64:
		return math.Float64bits(math.Pow(math.Float64frombits(a), math.Float64frombits(b))), nil
	}
	return 0, nil
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func compare(op ir.Opcode, a, b uint64) bool {
	switch op {
	case ir.OpEqI32:
		return int32(uint32(a)) == int32(uint32(b))
	case ir.OpEqI64:
		return int64(a) == int64(b)
	case ir.OpEqU64:
		return a == b
	case ir.OpEqF32:
		return math.Float32frombits(uint32(a)) == math.Float32frombits(uint32(b))
	case ir.OpEqF64:
		return math.Float64frombits(a) == math.Float64frombits(b)
	case ir.OpEqBool:
		return a == b

	case ir.OpNeI32:
		return int32(uint32(a)) != int32(uint32(b))
	case ir.OpNeI64:
		return int64(a) != int64(b)
	case ir.OpNeU64:
		return a != b
	case ir.OpNeF32:
		return math.Float32frombits(uint32(a)) != math.Float32frombits(uint32(b))
	case ir.OpNeF64:
		return math.Float64frombits(a) != math.Float64frombits(b)

	case ir.OpLtI32:
		return int32(uint32(a)) < int32(uint32(b))
	case ir.OpLtI64:
		return int64(a) < int64(b)
	case ir.OpLtU64:
		return a < b
	case ir.OpLtF32:
		return math.Float32frombits(uint32(a)) < math.Float32frombits(uint32(b))
	case ir.OpLtF64:
		return math.Float64frombits(a) < math.Float64frombits(b)

	case ir.OpLeI32:
		return int32(uint32(a)) <= int32(uint32(b))
	case ir.OpLeI64:
		return int64(a) <= int64(b)
	case ir.OpLeU64:
		return a <= b
	case ir.OpLeF32:
		return math.Float32frombits(uint32(a)) <= math.Float32frombits(uint32(b))
	case ir.OpLeF64:
		return math.Float64frombits(a) <= math.Float64frombits(b)

	case ir.OpGtI32:
		return int32(uint32(a)) > int32(uint32(b))
	case ir.OpGtI64:
		return int64(a) > int64(b)
	case ir.OpGtU64:
		return a > b
	case ir.OpGtF32:
		return math.Float32frombits(uint32(a)) > math.Float32frombits(uint32(b))
	case ir.OpGtF64:
		return math.Float64frombits(a) > math.Float64frombits(b)

	case ir.OpGeI32:
		return int32(uint32(a)) >= int32(uint32(b))
	case ir.OpGeI64:
		return int64(a) >= int64(b)
	case ir.OpGeU64:
		return a >= b
	case ir.OpGeF32:
		return math.Float32frombits(uint32(a)) >= math.Float32frombits(uint32(b))
	case ir.OpGeF64:
		return math.Float64frombits(a) >= math.Float64frombits(b)
	}
	return false
}
