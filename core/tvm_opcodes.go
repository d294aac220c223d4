package core

// TVMOpcode is a single byte instruction in the EVM-compatible bytecode
// the TVM backend interprets (spec.md §4.6). Naming and values follow the
// reference implementation's own EVM-compatible opcode set one-for-one so
// contracts compiled against it run unmodified.
type TVMOpcode byte

const (
	OpStop       TVMOpcode = 0x00
	OpAdd        TVMOpcode = 0x01
	OpMul        TVMOpcode = 0x02
	OpSub        TVMOpcode = 0x03
	OpDiv        TVMOpcode = 0x04
	OpSdiv       TVMOpcode = 0x05
	OpMod        TVMOpcode = 0x06
	OpSmod       TVMOpcode = 0x07
	OpAddmod     TVMOpcode = 0x08
	OpMulmod     TVMOpcode = 0x09
	OpExp        TVMOpcode = 0x0a
	OpSignextend TVMOpcode = 0x0b

	OpLt     TVMOpcode = 0x10
	OpGt     TVMOpcode = 0x11
	OpSlt    TVMOpcode = 0x12
	OpSgt    TVMOpcode = 0x13
	OpEq     TVMOpcode = 0x14
	OpIszero TVMOpcode = 0x15
	OpAnd    TVMOpcode = 0x16
	OpOr     TVMOpcode = 0x17
	OpXor    TVMOpcode = 0x18
	OpNot    TVMOpcode = 0x19
	OpByte   TVMOpcode = 0x1a
	OpShl    TVMOpcode = 0x1b
	OpShr    TVMOpcode = 0x1c
	OpSar    TVMOpcode = 0x1d

	OpSha3 TVMOpcode = 0x20

	OpAddress        TVMOpcode = 0x30
	OpBalance        TVMOpcode = 0x31
	OpOrigin         TVMOpcode = 0x32
	OpCaller         TVMOpcode = 0x33
	OpCallValue      TVMOpcode = 0x34
	OpCallDataLoad   TVMOpcode = 0x35
	OpCallDataSize   TVMOpcode = 0x36
	OpCallDataCopy   TVMOpcode = 0x37
	OpCodeSize       TVMOpcode = 0x38
	OpCodeCopy       TVMOpcode = 0x39
	OpGasPrice       TVMOpcode = 0x3a
	OpExtCodeSize    TVMOpcode = 0x3b
	OpReturnDataSize TVMOpcode = 0x3d
	OpReturnDataCopy TVMOpcode = 0x3e

	OpBlockHash  TVMOpcode = 0x40
	OpCoinbase   TVMOpcode = 0x41
	OpTimestamp  TVMOpcode = 0x42
	OpNumber     TVMOpcode = 0x43
	OpDifficulty TVMOpcode = 0x44
	OpGasLimit   TVMOpcode = 0x45

	OpPop      TVMOpcode = 0x50
	OpMload    TVMOpcode = 0x51
	OpMstore   TVMOpcode = 0x52
	OpMstore8  TVMOpcode = 0x53
	OpSload    TVMOpcode = 0x54
	OpSstore   TVMOpcode = 0x55
	OpJump     TVMOpcode = 0x56
	OpJumpi    TVMOpcode = 0x57
	OpPc       TVMOpcode = 0x58
	OpMsize    TVMOpcode = 0x59
	OpGas      TVMOpcode = 0x5a
	OpJumpdest TVMOpcode = 0x5b

	OpPush1  TVMOpcode = 0x60
	OpPush32 TVMOpcode = 0x7f

	OpDup1  TVMOpcode = 0x80
	OpDup16 TVMOpcode = 0x8f

	OpSwap1  TVMOpcode = 0x90
	OpSwap16 TVMOpcode = 0x9f

	OpLog0 TVMOpcode = 0xa0
	OpLog4 TVMOpcode = 0xa4

	OpCreate       TVMOpcode = 0xf0
	OpCall         TVMOpcode = 0xf1
	OpCallCode     TVMOpcode = 0xf2
	OpReturn       TVMOpcode = 0xf3
	OpDelegateCall TVMOpcode = 0xf4
	OpStaticCall   TVMOpcode = 0xfa
	OpRevert       TVMOpcode = 0xfd
	OpInvalid      TVMOpcode = 0xfe
	OpSelfDestruct TVMOpcode = 0xff
)

// tvmGasTable prices every opcode handled by the interpreter (spec.md §4.6
// TVM backend). Unlisted opcodes fall back to DefaultTVMGasCost. Values
// follow the reference EVM's base costs. These static costs are the only
// gas the interpreter charges: there is no per-word or per-byte surcharge
// for memory expansion, LOG data or SHA3 input.
var tvmGasTable = map[TVMOpcode]uint64{
	OpStop: 0,
	OpAdd:  3, OpMul: 5, OpSub: 3, OpDiv: 5, OpSdiv: 5, OpMod: 5, OpSmod: 5,
	OpAddmod: 8, OpMulmod: 8, OpExp: 10, OpSignextend: 5,
	OpLt: 3, OpGt: 3, OpSlt: 3, OpSgt: 3, OpEq: 3, OpIszero: 3,
	OpAnd: 3, OpOr: 3, OpXor: 3, OpNot: 3, OpByte: 3, OpShl: 3, OpShr: 3, OpSar: 3,
	OpSha3:    30,
	OpAddress: 2, OpBalance: 100, OpOrigin: 2, OpCaller: 2, OpCallValue: 2,
	OpCallDataLoad: 3, OpCallDataSize: 2, OpCallDataCopy: 3,
	OpCodeSize: 2, OpCodeCopy: 3, OpGasPrice: 2, OpExtCodeSize: 100,
	OpReturnDataSize: 2, OpReturnDataCopy: 3,
	OpBlockHash: 20, OpCoinbase: 2, OpTimestamp: 2, OpNumber: 2,
	OpDifficulty: 2, OpGasLimit: 2,
	OpPop: 2, OpMload: 3, OpMstore: 3, OpMstore8: 3,
	OpSload: 100, OpSstore: 100,
	OpJump: 8, OpJumpi: 10, OpPc: 2, OpMsize: 2, OpGas: 2, OpJumpdest: 1,
	OpCreate: 32000, OpCall: 100, OpCallCode: 100, OpReturn: 0,
	OpDelegateCall: 100, OpStaticCall: 100, OpRevert: 0, OpSelfDestruct: 5000,
}

const DefaultTVMGasCost uint64 = 3

func tvmGasCost(op TVMOpcode) uint64 {
	if c, ok := tvmGasTable[op]; ok {
		return c
	}
	return DefaultTVMGasCost
}

func isPush(op TVMOpcode) bool { return op >= OpPush1 && op <= OpPush32 }
func pushSize(op TVMOpcode) int { return int(op-OpPush1) + 1 }
func isDup(op TVMOpcode) bool  { return op >= OpDup1 && op <= OpDup16 }
func dupDepth(op TVMOpcode) int { return int(op-OpDup1) + 1 }
func isSwap(op TVMOpcode) bool  { return op >= OpSwap1 && op <= OpSwap16 }
func swapDepth(op TVMOpcode) int { return int(op-OpSwap1) + 1 }
func isLog(op TVMOpcode) bool   { return op >= OpLog0 && op <= OpLog4 }
func logTopics(op TVMOpcode) int { return int(op - OpLog0) }
