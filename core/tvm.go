package core

import (
	"fmt"

	"github.com/holiman/uint256"
)

// TVMContext carries the per-block data the interpreter exposes to
// NUMBER/TIMESTAMP/COINBASE/GASPRICE opcodes (spec.md §4.6).
type TVMContext struct {
	BlockNumber int64
	BlockTime   int64
	Coinbase    Address
	GasPrice    int64
	Origin      Address
}

// TVMMessage is a single call/create frame (spec.md §4.6: "the TVM Backend
// ... is invoked by the two smart-contract executors").
type TVMMessage struct {
	Caller    Address
	Contract  Address // storage/code scope this frame executes against
	CallValue int64
	Input     []byte
	Gas       uint64
	depth     int
}

// TVMResult is what CreateSmartContract/TriggerSmartContract read back to
// decide commit-vs-rollback and energy accounting (spec.md §4.6: "emits
// applies ... and logs that are committed on success or dropped on
// failure").
type TVMResult struct {
	ReturnData []byte
	GasUsed    uint64
	Status     ContractStatus
	Logs       []Log
}

const maxTVMCallDepth = 64

// TVM is the EVM-like stack machine of spec.md §4.6. It reads/writes
// contract storage directly through StateDB, so the caller is expected to
// have already opened a fresh layer; on a non-success Status the caller
// discards that layer, on Success it lets the layer solidify along with
// the rest of the transaction's mutations.
type TVM struct {
	state *StateDB
	ctx   TVMContext
}

func NewTVM(state *StateDB, ctx TVMContext) *TVM {
	return &TVM{state: state, ctx: ctx}
}

// Run executes code (the contract's deployed bytecode, or init code for a
// CREATE frame) against msg and returns the outcome. It never returns a Go
// error for VM-level failures — those are reported via Status per spec.md
// §7's "VM exit conditions... mapped to a contract-status enum" — only for
// programmer-error conditions (nil state) that should never
// occur from a well-formed caller.
func (vm *TVM) Run(code []byte, msg TVMMessage) (*TVMResult, error) {
	if vm.state == nil {
		return nil, fmt.Errorf("core: TVM.Run with nil state")
	}
	if msg.depth > maxTVMCallDepth {
		return &TVMResult{Status: StatusIllegalOperation, GasUsed: msg.Gas}, nil
	}

	it := &tvmInterp{
		vm:     vm,
		code:   code,
		msg:    msg,
		gas:    msg.Gas,
		stack:  make([]uint256.Int, 0, 32),
		memory: make([]byte, 0, 256),
	}
	status := it.run()
	res := &TVMResult{
		ReturnData: it.retData,
		GasUsed:    msg.Gas - it.gas,
		Status:     status,
		Logs:       it.logs,
	}
	if status.Fatal() {
		res.GasUsed = msg.Gas
	}
	return res, nil
}

type tvmInterp struct {
	vm      *TVM
	code    []byte
	msg     TVMMessage
	pc      uint64
	gas     uint64
	stack   []uint256.Int
	memory  []byte
	retData []byte
	logs    []Log
}

func (it *tvmInterp) run() ContractStatus {
	for {
		if it.pc >= uint64(len(it.code)) {
			return StatusSuccess
		}
		op := TVMOpcode(it.code[it.pc])

		if !it.consumeGas(tvmGasCost(op)) {
			return StatusOutOfEnergy
		}

		switch {
		case op == OpStop:
			return StatusSuccess
		case op == OpReturn:
			off, size, ok := it.pop2()
			if !ok {
				return StatusIllegalOperation
			}
			it.retData = it.readMemory(off, size)
			return StatusSuccess
		case op == OpRevert:
			off, size, ok := it.pop2()
			if !ok {
				return StatusIllegalOperation
			}
			it.retData = it.readMemory(off, size)
			return StatusRevert
		case op == OpInvalid:
			return StatusIllegalOperation
		case op == OpSelfDestruct:
			beneficiary, ok := it.pop()
			if !ok {
				return StatusIllegalOperation
			}
			it.selfDestruct(addressFromUint256(beneficiary))
			return StatusSuccess
		case isPush(op):
			n := pushSize(op)
			var v uint256.Int
			end := it.pc + 1 + uint64(n)
			if end > uint64(len(it.code)) {
				end = uint64(len(it.code))
			}
			v.SetBytes(it.code[it.pc+1 : end])
			it.push(v)
			it.pc += uint64(n)
		case isDup(op):
			if !it.dup(dupDepth(op)) {
				return StatusIllegalOperation
			}
		case isSwap(op):
			if !it.swap(swapDepth(op)) {
				return StatusIllegalOperation
			}
		case isLog(op):
			if ok := it.doLog(logTopics(op)); !ok {
				return StatusIllegalOperation
			}
		default:
			st := it.dispatch(op)
			if st != StatusSuccess {
				return st
			}
		}
		it.pc++
	}
}

// dispatch handles every fixed (non-PUSH/DUP/SWAP/LOG) opcode. Returning
// anything other than StatusSuccess aborts the run immediately with that
// status; JUMP/JUMPI set pc one short of the destination so the run
// loop's pc++ lands on it.
func (it *tvmInterp) dispatch(op TVMOpcode) ContractStatus {
	switch op {
	case OpAdd:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Add(x, y) })
	case OpMul:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Mul(x, y) })
	case OpSub:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Sub(x, y) })
	case OpDiv:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Div(x, y) })
	case OpSdiv:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.SDiv(x, y) })
	case OpMod:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Mod(x, y) })
	case OpSmod:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.SMod(x, y) })
	case OpAddmod:
		return it.triOp(func(z, x, y, m *uint256.Int) *uint256.Int { return z.AddMod(x, y, m) })
	case OpMulmod:
		return it.triOp(func(z, x, y, m *uint256.Int) *uint256.Int { return z.MulMod(x, y, m) })
	case OpExp:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Exp(x, y) })
	case OpSignextend:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.ExtendSign(y, x) })
	case OpLt:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return boolToU256(z, x.Lt(y)) })
	case OpGt:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return boolToU256(z, x.Gt(y)) })
	case OpSlt:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return boolToU256(z, x.Slt(y)) })
	case OpSgt:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return boolToU256(z, x.Sgt(y)) })
	case OpEq:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return boolToU256(z, x.Eq(y)) })
	case OpIszero:
		return it.unOp(func(z, x *uint256.Int) *uint256.Int { return boolToU256(z, x.IsZero()) })
	case OpAnd:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.And(x, y) })
	case OpOr:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Or(x, y) })
	case OpXor:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Xor(x, y) })
	case OpNot:
		return it.unOp(func(z, x *uint256.Int) *uint256.Int { return z.Not(x) })
	case OpByte:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Byte(x, y) })
	case OpShl:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Lsh(y, uint(x.Uint64())) })
	case OpShr:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.Rsh(y, uint(x.Uint64())) })
	case OpSar:
		return it.binOp(func(z, x, y *uint256.Int) *uint256.Int { return z.SRsh(y, uint(x.Uint64())) })
	case OpSha3:
		return it.doSha3()
	case OpAddress:
		it.pushAddr(it.msg.Contract)
	case OpBalance:
		return it.doBalance()
	case OpOrigin:
		it.pushAddr(it.vm.ctx.Origin)
	case OpCaller:
		it.pushAddr(it.msg.Caller)
	case OpCallValue:
		var v uint256.Int
		v.SetUint64(uint64(it.msg.CallValue))
		it.push(v)
	case OpCallDataLoad:
		return it.doCallDataLoad()
	case OpCallDataSize:
		var v uint256.Int
		v.SetUint64(uint64(len(it.msg.Input)))
		it.push(v)
	case OpCallDataCopy:
		return it.doDataCopy(it.msg.Input)
	case OpCodeSize:
		var v uint256.Int
		v.SetUint64(uint64(len(it.code)))
		it.push(v)
	case OpCodeCopy:
		return it.doDataCopy(it.code)
	case OpReturnDataSize:
		var v uint256.Int
		v.SetUint64(uint64(len(it.retData)))
		it.push(v)
	case OpReturnDataCopy:
		return it.doDataCopy(it.retData)
	case OpGasPrice:
		var v uint256.Int
		v.SetUint64(uint64(it.vm.ctx.GasPrice))
		it.push(v)
	case OpExtCodeSize:
		return it.doExtCodeSize()
	case OpBlockHash:
		if _, ok := it.pop(); !ok {
			return StatusIllegalOperation
		}
		it.push(uint256.Int{})
	case OpCoinbase:
		it.pushAddr(it.vm.ctx.Coinbase)
	case OpTimestamp:
		var v uint256.Int
		v.SetUint64(uint64(it.vm.ctx.BlockTime))
		it.push(v)
	case OpNumber:
		var v uint256.Int
		v.SetUint64(uint64(it.vm.ctx.BlockNumber))
		it.push(v)
	case OpDifficulty:
		it.push(uint256.Int{})
	case OpGasLimit:
		var v uint256.Int
		v.SetUint64(it.msg.Gas)
		it.push(v)
	case OpPop:
		if _, ok := it.pop(); !ok {
			return StatusIllegalOperation
		}
	case OpMload:
		return it.doMload()
	case OpMstore:
		return it.doMstore(32)
	case OpMstore8:
		return it.doMstore(1)
	case OpSload:
		return it.doSload()
	case OpSstore:
		return it.doSstore()
	case OpJump:
		return it.doJump()
	case OpJumpi:
		return it.doJumpi()
	case OpPc:
		var v uint256.Int
		v.SetUint64(it.pc)
		it.push(v)
	case OpMsize:
		var v uint256.Int
		v.SetUint64(uint64(len(it.memory)))
		it.push(v)
	case OpGas:
		var v uint256.Int
		v.SetUint64(it.gas)
		it.push(v)
	case OpJumpdest:
		// no-op marker
	case OpCreate:
		return it.doCreate()
	case OpCall, OpCallCode, OpDelegateCall, OpStaticCall:
		return it.doCall(op)
	default:
		return StatusIllegalOperation
	}
	return StatusSuccess
}

func boolToU256(z *uint256.Int, b bool) *uint256.Int {
	if b {
		return z.SetOne()
	}
	return z.Clear()
}

func addressFromUint256(v uint256.Int) Address {
	b := v.Bytes32()
	return BytesToAddress(b[:])
}

func (it *tvmInterp) pushAddr(a Address) {
	var v uint256.Int
	v.SetBytes(a.Bytes())
	it.push(v)
}

func (it *tvmInterp) consumeGas(n uint64) bool {
	if it.gas < n {
		it.gas = 0
		return false
	}
	it.gas -= n
	return true
}

func (it *tvmInterp) push(v uint256.Int) { it.stack = append(it.stack, v) }

func (it *tvmInterp) pop() (uint256.Int, bool) {
	if len(it.stack) == 0 {
		return uint256.Int{}, false
	}
	v := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	return v, true
}

func (it *tvmInterp) pop2() (uint64, uint64, bool) {
	a, ok1 := it.pop()
	b, ok2 := it.pop()
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return a.Uint64(), b.Uint64(), true
}

func (it *tvmInterp) dup(depth int) bool {
	if depth > len(it.stack) {
		return false
	}
	it.push(it.stack[len(it.stack)-depth])
	return true
}

func (it *tvmInterp) swap(depth int) bool {
	if depth >= len(it.stack) {
		return false
	}
	top := len(it.stack) - 1
	it.stack[top], it.stack[top-depth] = it.stack[top-depth], it.stack[top]
	return true
}

func (it *tvmInterp) unOp(fn func(z, x *uint256.Int) *uint256.Int) ContractStatus {
	x, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	var z uint256.Int
	it.push(*fn(&z, &x))
	return StatusSuccess
}

func (it *tvmInterp) binOp(fn func(z, x, y *uint256.Int) *uint256.Int) ContractStatus {
	x, ok1 := it.pop()
	y, ok2 := it.pop()
	if !ok1 || !ok2 {
		return StatusIllegalOperation
	}
	var z uint256.Int
	it.push(*fn(&z, &x, &y))
	return StatusSuccess
}

func (it *tvmInterp) triOp(fn func(z, x, y, m *uint256.Int) *uint256.Int) ContractStatus {
	x, ok1 := it.pop()
	y, ok2 := it.pop()
	m, ok3 := it.pop()
	if !ok1 || !ok2 || !ok3 {
		return StatusIllegalOperation
	}
	var z uint256.Int
	it.push(*fn(&z, &x, &y, &m))
	return StatusSuccess
}

func (it *tvmInterp) ensureMemory(end uint64) {
	if end > uint64(len(it.memory)) {
		grown := make([]byte, end)
		copy(grown, it.memory)
		it.memory = grown
	}
}

func (it *tvmInterp) readMemory(offset, size uint64) []byte {
	it.ensureMemory(offset + size)
	out := make([]byte, size)
	copy(out, it.memory[offset:offset+size])
	return out
}

func (it *tvmInterp) doMload() ContractStatus {
	off, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	offset := off.Uint64()
	it.ensureMemory(offset + 32)
	var v uint256.Int
	v.SetBytes(it.memory[offset : offset+32])
	it.push(v)
	return StatusSuccess
}

func (it *tvmInterp) doMstore(width int) ContractStatus {
	off, ok1 := it.pop()
	val, ok2 := it.pop()
	if !ok1 || !ok2 {
		return StatusIllegalOperation
	}
	offset := off.Uint64()
	it.ensureMemory(offset + uint64(width))
	b := val.Bytes32()
	copy(it.memory[offset:offset+uint64(width)], b[32-width:])
	return StatusSuccess
}

func (it *tvmInterp) doSload() ContractStatus {
	slot, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	b := slot.Bytes32()
	v, _, err := it.vm.state.GetContractStorage(it.msg.Contract, Hash(b))
	if err != nil {
		return StatusIllegalOperation
	}
	var out uint256.Int
	out.SetBytes(v.Bytes())
	it.push(out)
	return StatusSuccess
}

func (it *tvmInterp) doSstore() ContractStatus {
	slot, ok1 := it.pop()
	val, ok2 := it.pop()
	if !ok1 || !ok2 {
		return StatusIllegalOperation
	}
	slotB := slot.Bytes32()
	valB := val.Bytes32()
	if err := it.vm.state.PutContractStorage(it.msg.Contract, Hash(slotB), Hash(valB)); err != nil {
		return StatusIllegalOperation
	}
	return StatusSuccess
}

func (it *tvmInterp) doJump() ContractStatus {
	dest, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	return it.jumpTo(dest.Uint64())
}

func (it *tvmInterp) doJumpi() ContractStatus {
	dest, ok1 := it.pop()
	cond, ok2 := it.pop()
	if !ok1 || !ok2 {
		return StatusIllegalOperation
	}
	if cond.IsZero() {
		return StatusSuccess
	}
	return it.jumpTo(dest.Uint64())
}

// jumpTo validates the destination is a JUMPDEST and positions pc there;
// the outer loop's pc++ is compensated by leaving pc one short.
func (it *tvmInterp) jumpTo(dest uint64) ContractStatus {
	if dest >= uint64(len(it.code)) || TVMOpcode(it.code[dest]) != OpJumpdest {
		return StatusIllegalOperation
	}
	it.pc = dest - 1
	return StatusSuccess
}

func (it *tvmInterp) doSha3() ContractStatus {
	off, size, ok := it.pop2()
	if !ok {
		return StatusIllegalOperation
	}
	data := it.readMemory(off, size)
	sum := Keccak256(data)
	var v uint256.Int
	v.SetBytes(sum)
	it.push(v)
	return StatusSuccess
}

func (it *tvmInterp) doBalance() ContractStatus {
	addr, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	acct, found, err := it.vm.state.GetAccount(addressFromUint256(addr))
	if err != nil {
		return StatusIllegalOperation
	}
	var v uint256.Int
	if found {
		v.SetUint64(uint64(acct.Balance))
	}
	it.push(v)
	return StatusSuccess
}

func (it *tvmInterp) doExtCodeSize() ContractStatus {
	addr, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	code, found, err := it.vm.state.GetContractCode(addressFromUint256(addr))
	if err != nil {
		return StatusIllegalOperation
	}
	var v uint256.Int
	if found {
		v.SetUint64(uint64(len(code)))
	}
	it.push(v)
	return StatusSuccess
}

func (it *tvmInterp) doCallDataLoad() ContractStatus {
	off, ok := it.pop()
	if !ok {
		return StatusIllegalOperation
	}
	offset := off.Uint64()
	var buf [32]byte
	for i := 0; i < 32; i++ {
		idx := offset + uint64(i)
		if idx < uint64(len(it.msg.Input)) {
			buf[i] = it.msg.Input[idx]
		}
	}
	var v uint256.Int
	v.SetBytes(buf[:])
	it.push(v)
	return StatusSuccess
}

func (it *tvmInterp) doDataCopy(src []byte) ContractStatus {
	destOff, ok1 := it.pop()
	srcOff, ok2 := it.pop()
	size, ok3 := it.pop()
	if !ok1 || !ok2 || !ok3 {
		return StatusIllegalOperation
	}
	dst := destOff.Uint64()
	so := srcOff.Uint64()
	n := size.Uint64()
	it.ensureMemory(dst + n)
	for i := uint64(0); i < n; i++ {
		if so+i < uint64(len(src)) {
			it.memory[dst+i] = src[so+i]
		} else {
			it.memory[dst+i] = 0
		}
	}
	return StatusSuccess
}

func (it *tvmInterp) doLog(topicCount int) bool {
	off, size, ok := it.pop2()
	if !ok {
		return false
	}
	topics := make([]Hash, topicCount)
	for i := 0; i < topicCount; i++ {
		t, ok := it.pop()
		if !ok {
			return false
		}
		b := t.Bytes32()
		topics[i] = Hash(b)
	}
	it.logs = append(it.logs, Log{
		Address: it.msg.Contract,
		Topics:  topics,
		Data:    it.readMemory(off, size),
	})
	return true
}

// selfDestruct implements spec.md §3's "contract account is destroyed
// only by explicit VM self-destruct": its balance moves to beneficiary and
// its code/account records are deleted from the State DB.
func (it *tvmInterp) selfDestruct(beneficiary Address) {
	acct, found, err := it.vm.state.GetAccount(it.msg.Contract)
	if err != nil || !found {
		return
	}
	if ben, _, err := it.vm.state.GetOrCreateAccount(beneficiary); err == nil {
		ben.Balance += acct.Balance
		_ = it.vm.state.PutAccount(ben)
	}
	it.vm.state.Delete(accountKey(it.msg.Contract))
	it.vm.state.Delete(contractCodeKey(it.msg.Contract))
}

// doCall implements CALL/CALLCODE/DELEGATECALL/STATICCALL by recursing
// into a fresh interpreter frame over the target's code, sharing this
// frame's StateDB (and therefore its in-flight layer) so nested mutations
// are visible to the outer transaction on success and discarded together
// with everything else on the enclosing failure path.
func (it *tvmInterp) doCall(op TVMOpcode) ContractStatus {
	gasArg, ok1 := it.pop()
	addr, ok2 := it.pop()
	var value uint256.Int
	ok3 := true
	if op == OpCall || op == OpCallCode {
		value, ok3 = it.pop()
	}
	inOff, ok4 := it.pop()
	inSize, ok5 := it.pop()
	outOff, ok6 := it.pop()
	outSize, ok7 := it.pop()
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return StatusIllegalOperation
	}

	target := addressFromUint256(addr)
	input := it.readMemory(inOff.Uint64(), inSize.Uint64())
	callValue := int64(value.Uint64())

	if callValue > 0 {
		caller, found, err := it.vm.state.GetAccount(it.msg.Contract)
		if err != nil || !found || caller.Balance < callValue {
			var zero uint256.Int
			it.push(zero)
			return StatusSuccess
		}
		callee, _, err := it.vm.state.GetOrCreateAccount(target)
		if err != nil {
			return StatusIllegalOperation
		}
		caller.Balance -= callValue
		callee.Balance += callValue
		_ = it.vm.state.PutAccount(caller)
		_ = it.vm.state.PutAccount(callee)
	}

	code, _, err := it.vm.state.GetContractCode(target)
	if err != nil {
		return StatusIllegalOperation
	}

	calleeAddr := target
	callerAddr := it.msg.Contract
	if op == OpCallCode || op == OpDelegateCall {
		calleeAddr = it.msg.Contract
	}
	if op == OpDelegateCall {
		callerAddr = it.msg.Caller
		callValue = it.msg.CallValue
	}

	sub := TVMMessage{
		Caller:    callerAddr,
		Contract:  calleeAddr,
		CallValue: callValue,
		Input:     input,
		Gas:       gasArg.Uint64(),
		depth:     it.msg.depth + 1,
	}
	res, err := it.vm.Run(code, sub)
	if err != nil {
		return StatusIllegalOperation
	}
	it.retData = res.ReturnData
	it.logs = append(it.logs, res.Logs...)
	n := outSize.Uint64()
	if n > 0 {
		it.ensureMemory(outOff.Uint64() + n)
		copy(it.memory[outOff.Uint64():outOff.Uint64()+n], res.ReturnData)
	}
	var success uint256.Int
	if res.Status == StatusSuccess {
		success.SetOne()
	}
	it.push(success)
	return StatusSuccess
}

// doCreate implements the CREATE opcode: a nested contract deployment
// initiated from within running bytecode, as distinct from the top-level
// CreateSmartContract actuator (spec.md §4.6).
func (it *tvmInterp) doCreate() ContractStatus {
	value, ok1 := it.pop()
	off, ok2 := it.pop()
	size, ok3 := it.pop()
	if !ok1 || !ok2 || !ok3 {
		return StatusIllegalOperation
	}
	initCode := it.readMemory(off.Uint64(), size.Uint64())
	newAddr := BytesToAddress(Keccak256(it.msg.Contract.Bytes(), initCode, it.pc2Bytes()))
	newAddr[0] = AddressPrefix

	sub := TVMMessage{
		Caller:    it.msg.Contract,
		Contract:  newAddr,
		CallValue: int64(value.Uint64()),
		Gas:       it.gas,
		depth:     it.msg.depth + 1,
	}
	res, err := it.vm.Run(initCode, sub)
	if err != nil || res.Status != StatusSuccess {
		it.push(uint256.Int{})
		return StatusSuccess
	}
	_ = it.vm.state.PutContractCode(newAddr, res.ReturnData)
	it.pushAddr(newAddr)
	return StatusSuccess
}

func (it *tvmInterp) pc2Bytes() []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[7-i] = byte(it.pc >> (8 * i))
	}
	return b[:]
}
