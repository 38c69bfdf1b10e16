// Package evm implements the EVM-compatible execution host of spec.md §4.5:
// a bytecode interpreter over 256-bit words, mediating every storage access
// through the state store so contract execution stays within the node's
// single-writer concurrency model, and charging gas per opcode against the
// budget internal/gas has already reserved for the transaction. No EVM
// interpreter existed anywhere in the retrieved corpus, so this package is
// authored directly from spec.md's own opcode and gas requirements rather
// than adapted from a teacher file; its stack/memory/storage *shape*
// (mutex-free, single-threaded, explicit Host seam) follows the same
// "plain Go, explicit interfaces, no reflection" style the rest of this
// module inherits from the teacher.
package evm

import (
	"errors"
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/holiman/uint256"
)

// ErrOutOfGas is returned when execution exhausts its gas budget.
var ErrOutOfGas = errors.New("evm: out of gas")

// ErrInvalidJump is returned when JUMP/JUMPI targets a non-JUMPDEST offset.
var ErrInvalidJump = errors.New("evm: invalid jump destination")

// ErrInvalidOpcode is returned for INVALID or any byte this interpreter does
// not implement.
var ErrInvalidOpcode = errors.New("evm: invalid opcode")

// Host is the storage/account seam the interpreter calls through, satisfied
// by internal/state.Store, so this package never imports internal/state
// directly (keeping the dependency direction state -> evm free of a cycle;
// internal/execution wires the concrete Store in).
type Host interface {
	GetStorage(addr cryptoutil.Address, slot cryptoutil.Hash) cryptoutil.Hash
	SetStorage(addr cryptoutil.Address, slot, value cryptoutil.Hash)
	GetCode(codeHash cryptoutil.Hash) ([]byte, bool)
}

// BlockContext carries the block-scoped values the TIMESTAMP/NUMBER/GASLIMIT
// opcodes read, per spec.md §4.5; CALLER/ADDRESS/GASPRICE read from Message.
type BlockContext struct {
	Height      uint64
	TimestampMs uint64
	GasLimit    uint64
}

// Message is one contract invocation: either a deploy's constructor run or
// a call's entry run.
type Message struct {
	From     cryptoutil.Address
	To       cryptoutil.Address
	Value    *uint256.Int
	Data     []byte
	GasPrice *uint256.Int
	GasLimit uint64
}

// Log is one LOGn emission, mapped to types.Event by internal/execution.
type Log struct {
	Topics []cryptoutil.Hash
	Data   []byte
}

// Result is the outcome of running a contract to completion.
type Result struct {
	Success    bool
	ReturnData []byte
	GasUsed    uint64
	Logs       []Log
	Err        error
}

// Run executes code against msg and returns once it halts (STOP, RETURN,
// REVERT), runs out of gas, or hits an invalid instruction. It never
// panics: any internal fault is converted into a failed Result, because a
// panic here would bring down the block builder.
func Run(host Host, block BlockContext, msg Message, code []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Success: false, GasUsed: msg.GasLimit, Err: fmt.Errorf("evm: panic: %v", r)}
		}
	}()

	in := &interpreter{
		host:     host,
		block:    block,
		msg:      msg,
		code:     code,
		stack:    newStack(),
		mem:      newMemory(),
		gasLeft:  msg.GasLimit,
		jumpdest: scanJumpdests(code),
	}
	return in.run()
}

type interpreter struct {
	host     Host
	block    BlockContext
	msg      Message
	code     []byte
	stack    *stack
	mem      *memory
	pc       uint64
	gasLeft  uint64
	gasUsed  uint64
	logs     []Log
	jumpdest map[uint64]bool
}

func scanJumpdests(code []byte) map[uint64]bool {
	dests := make(map[uint64]bool)
	for i := 0; i < len(code); {
		op := opCode(code[i])
		if op == opJUMPDEST {
			dests[uint64(i)] = true
			i++
			continue
		}
		if isPush(op) {
			i += 1 + pushSize(op)
			continue
		}
		i++
	}
	return dests
}

func (in *interpreter) charge(cost uint64) bool {
	if in.gasLeft < cost {
		in.gasLeft = 0
		return false
	}
	in.gasLeft -= cost
	in.gasUsed += cost
	return true
}

func (in *interpreter) fail(err error) Result {
	return Result{Success: false, GasUsed: in.msg.GasLimit - in.gasLeft, Err: err}
}

func (in *interpreter) run() Result {
	for {
		if in.pc >= uint64(len(in.code)) {
			return Result{Success: true, GasUsed: in.gasUsed, Logs: in.logs}
		}
		op := opCode(in.code[in.pc])

		switch {
		case op == opSTOP:
			return Result{Success: true, GasUsed: in.gasUsed, Logs: in.logs}
		case op == opRETURN || op == opREVERT:
			if !in.charge(gasQuick) {
				return in.fail(ErrOutOfGas)
			}
			offset, size, err := in.pop2Uint64()
			if err != nil {
				return in.fail(err)
			}
			data := in.mem.get(offset, size)
			if op == opREVERT {
				return Result{Success: false, ReturnData: data, GasUsed: in.gasUsed, Logs: in.logs, Err: errors.New("evm: reverted")}
			}
			return Result{Success: true, ReturnData: data, GasUsed: in.gasUsed, Logs: in.logs}
		case isPush(op):
			n := pushSize(op)
			if !in.charge(gasQuick) {
				return in.fail(ErrOutOfGas)
			}
			start := in.pc + 1
			end := start + uint64(n)
			var buf []byte
			if end <= uint64(len(in.code)) {
				buf = in.code[start:end]
			} else if start < uint64(len(in.code)) {
				buf = in.code[start:]
			}
			if err := in.stack.push(new(uint256.Int).SetBytes(buf)); err != nil {
				return in.fail(err)
			}
			in.pc += uint64(n) + 1
			continue
		case isDup(op):
			if !in.charge(gasQuick) {
				return in.fail(ErrOutOfGas)
			}
			if err := in.stack.dup(dupIndex(op)); err != nil {
				return in.fail(err)
			}
		case isSwap(op):
			if !in.charge(gasQuick) {
				return in.fail(ErrOutOfGas)
			}
			if err := in.stack.swap(swapIndex(op)); err != nil {
				return in.fail(err)
			}
		case isLog(op):
			if err := in.execLog(logTopicCount(op)); err != nil {
				return in.fail(err)
			}
		default:
			if err := in.execOne(op); err != nil {
				return in.fail(err)
			}
		}
		in.pc++
	}
}

func (in *interpreter) pop2Uint64() (a, b uint64, err error) {
	x, err := in.stack.pop()
	if err != nil {
		return 0, 0, err
	}
	y, err := in.stack.pop()
	if err != nil {
		return 0, 0, err
	}
	return x.Uint64(), y.Uint64(), nil
}

func (in *interpreter) execLog(topicCount int) error {
	if !in.charge(gasLog) {
		return ErrOutOfGas
	}
	offset, size, err := in.pop2Uint64()
	if err != nil {
		return err
	}
	topics := make([]cryptoutil.Hash, topicCount)
	for i := 0; i < topicCount; i++ {
		v, err := in.stack.pop()
		if err != nil {
			return err
		}
		b := v.Bytes32()
		topics[i] = cryptoutil.Hash(b)
	}
	data := in.mem.get(offset, size)
	if !in.charge(gasLogData * uint64(len(data))) {
		return ErrOutOfGas
	}
	in.logs = append(in.logs, Log{Topics: topics, Data: data})
	return nil
}

func (in *interpreter) execOne(op opCode) error {
	switch op {
	case opADD, opMUL, opSUB, opDIV, opMOD, opLT, opGT, opEQ, opAND, opOR, opXOR:
		return in.execBinary(op)
	case opISZERO, opNOT:
		return in.execUnary(op)
	case opSHA3:
		return in.execSha3()
	case opADDRESS:
		return in.pushAddr(in.msg.To)
	case opCALLER:
		return in.pushAddr(in.msg.From)
	case opCALLVALUE:
		return in.pushUint(in.msg.Value)
	case opCALLDATALOAD:
		return in.execCalldataload()
	case opCALLDATASIZE:
		return in.stack.push(uint256.NewInt(uint64(len(in.msg.Data))))
	case opCALLDATACOPY:
		return in.execCalldatacopy()
	case opCODESIZE:
		return in.stack.push(uint256.NewInt(uint64(len(in.code))))
	case opGASPRICE:
		return in.pushUint(in.msg.GasPrice)
	case opNUMBER:
		return in.stack.push(uint256.NewInt(in.block.Height))
	case opTIMESTAMP:
		return in.stack.push(uint256.NewInt(in.block.TimestampMs))
	case opGASLIMIT:
		return in.stack.push(uint256.NewInt(in.block.GasLimit))
	case opGAS:
		return in.stack.push(uint256.NewInt(in.gasLeft))
	case opPOP:
		if !in.charge(gasQuick) {
			return ErrOutOfGas
		}
		_, err := in.stack.pop()
		return err
	case opMLOAD:
		return in.execMload()
	case opMSTORE:
		return in.execMstore()
	case opMSTORE8:
		return in.execMstore8()
	case opMSIZE:
		return in.stack.push(uint256.NewInt(uint64(len(in.mem.data))))
	case opSLOAD:
		return in.execSload()
	case opSSTORE:
		return in.execSstore()
	case opJUMP:
		return in.execJump(false)
	case opJUMPI:
		return in.execJump(true)
	case opJUMPDEST, opPC:
		return in.charge1(gasQuick)
	case opBALANCE:
		// Balance lookups require the account store, not the storage-only
		// Host seam; unsupported in this reduced instruction set.
		return ErrInvalidOpcode
	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidOpcode, byte(op))
	}
}

func (in *interpreter) charge1(cost uint64) error {
	if !in.charge(cost) {
		return ErrOutOfGas
	}
	return nil
}

func (in *interpreter) pushAddr(a cryptoutil.Address) error {
	if !in.charge(gasQuick) {
		return ErrOutOfGas
	}
	return in.stack.push(new(uint256.Int).SetBytes(a.Bytes()))
}

func (in *interpreter) pushUint(v *uint256.Int) error {
	if !in.charge(gasQuick) {
		return ErrOutOfGas
	}
	if v == nil {
		v = uint256.NewInt(0)
	}
	return in.stack.push(new(uint256.Int).Set(v))
}

func (in *interpreter) execBinary(op opCode) error {
	if !in.charge(gasQuick) {
		return ErrOutOfGas
	}
	// The first-popped operand (top of stack) is the left operand, matching
	// EVM convention: SUB computes top - next, DIV computes top / next.
	a, err := in.stack.pop()
	if err != nil {
		return err
	}
	b, err := in.stack.pop()
	if err != nil {
		return err
	}
	out := new(uint256.Int)
	switch op {
	case opADD:
		out.Add(a, b)
	case opMUL:
		out.Mul(a, b)
	case opSUB:
		out.Sub(a, b)
	case opDIV:
		if b.IsZero() {
			out.Clear()
		} else {
			out.Div(a, b)
		}
	case opMOD:
		if b.IsZero() {
			out.Clear()
		} else {
			out.Mod(a, b)
		}
	case opLT:
		if a.Lt(b) {
			out.SetOne()
		}
	case opGT:
		if a.Gt(b) {
			out.SetOne()
		}
	case opEQ:
		if a.Eq(b) {
			out.SetOne()
		}
	case opAND:
		out.And(a, b)
	case opOR:
		out.Or(a, b)
	case opXOR:
		out.Xor(a, b)
	}
	return in.stack.push(out)
}

func (in *interpreter) execUnary(op opCode) error {
	if !in.charge(gasQuick) {
		return ErrOutOfGas
	}
	a, err := in.stack.pop()
	if err != nil {
		return err
	}
	out := new(uint256.Int)
	switch op {
	case opISZERO:
		if a.IsZero() {
			out.SetOne()
		}
	case opNOT:
		out.Not(a)
	}
	return in.stack.push(out)
}

func (in *interpreter) execSha3() error {
	offset, size, err := in.pop2Uint64()
	if err != nil {
		return err
	}
	if !in.charge(gasSha3 + gasLogData*size) {
		return ErrOutOfGas
	}
	data := in.mem.get(offset, size)
	h := cryptoutil.Keccak256(data)
	return in.stack.push(new(uint256.Int).SetBytes(h.Bytes()))
}

func (in *interpreter) execCalldataload() error {
	if !in.charge(gasQuick) {
		return ErrOutOfGas
	}
	off, err := in.stack.pop()
	if err != nil {
		return err
	}
	offset := off.Uint64()
	var buf [32]byte
	for i := 0; i < 32; i++ {
		idx := offset + uint64(i)
		if idx < uint64(len(in.msg.Data)) {
			buf[i] = in.msg.Data[idx]
		}
	}
	return in.stack.push(new(uint256.Int).SetBytes(buf[:]))
}

func (in *interpreter) execCalldatacopy() error {
	destOff, err := in.stack.pop()
	if err != nil {
		return err
	}
	srcOff, err := in.stack.pop()
	if err != nil {
		return err
	}
	size, err := in.stack.pop()
	if err != nil {
		return err
	}
	n := size.Uint64()
	if !in.charge(gasQuick + gasLogData*n) {
		return ErrOutOfGas
	}
	src := srcOff.Uint64()
	buf := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		idx := src + i
		if idx < uint64(len(in.msg.Data)) {
			buf[i] = in.msg.Data[idx]
		}
	}
	in.mem.ensure(destOff.Uint64(), n)
	copy(in.mem.data[destOff.Uint64():], buf)
	return nil
}

func (in *interpreter) execMload() error {
	if !in.charge(gasMid) {
		return ErrOutOfGas
	}
	off, err := in.stack.pop()
	if err != nil {
		return err
	}
	v := in.mem.get(off.Uint64(), 32)
	return in.stack.push(new(uint256.Int).SetBytes(v))
}

func (in *interpreter) execMstore() error {
	if !in.charge(gasMid) {
		return ErrOutOfGas
	}
	off, err := in.stack.pop()
	if err != nil {
		return err
	}
	v, err := in.stack.pop()
	if err != nil {
		return err
	}
	in.mem.set32(off.Uint64(), v.Bytes())
	return nil
}

func (in *interpreter) execMstore8() error {
	if !in.charge(gasQuick) {
		return ErrOutOfGas
	}
	off, err := in.stack.pop()
	if err != nil {
		return err
	}
	v, err := in.stack.pop()
	if err != nil {
		return err
	}
	b := v.Bytes()
	last := byte(0)
	if len(b) > 0 {
		last = b[len(b)-1]
	}
	in.mem.setByte(off.Uint64(), last)
	return nil
}

func (in *interpreter) execSload() error {
	if !in.charge(gasStorage) {
		return ErrOutOfGas
	}
	slot, err := in.stack.pop()
	if err != nil {
		return err
	}
	val := in.host.GetStorage(in.msg.To, cryptoutil.Hash(slot.Bytes32()))
	return in.stack.push(new(uint256.Int).SetBytes(val.Bytes()))
}

func (in *interpreter) execSstore() error {
	if !in.charge(gasStorage * 2) {
		return ErrOutOfGas
	}
	slot, err := in.stack.pop()
	if err != nil {
		return err
	}
	val, err := in.stack.pop()
	if err != nil {
		return err
	}
	in.host.SetStorage(in.msg.To, cryptoutil.Hash(slot.Bytes32()), cryptoutil.Hash(val.Bytes32()))
	return nil
}

func (in *interpreter) execJump(conditional bool) error {
	if !in.charge(gasMid) {
		return ErrOutOfGas
	}
	dest, err := in.stack.pop()
	if err != nil {
		return err
	}
	takeJump := true
	if conditional {
		cond, err := in.stack.pop()
		if err != nil {
			return err
		}
		takeJump = !cond.IsZero()
	}
	if !takeJump {
		return nil
	}
	target := dest.Uint64()
	if !in.jumpdest[target] {
		return ErrInvalidJump
	}
	// pc is incremented after execOne returns, so land one before target.
	in.pc = target - 1
	return nil
}
