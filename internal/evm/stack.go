package evm

import (
	"errors"

	"github.com/holiman/uint256"
)

const maxStackDepth = 1024

var errStackUnderflow = errors.New("evm: stack underflow")
var errStackOverflow = errors.New("evm: stack overflow")

// stack is the 256-bit-word operand stack every opcode reads and writes,
// the same model every EVM implementation uses.
type stack struct {
	data []*uint256.Int
}

func newStack() *stack {
	return &stack{data: make([]*uint256.Int, 0, 32)}
}

func (s *stack) push(v *uint256.Int) error {
	if len(s.data) >= maxStackDepth {
		return errStackOverflow
	}
	s.data = append(s.data, v)
	return nil
}

func (s *stack) pop() (*uint256.Int, error) {
	n := len(s.data)
	if n == 0 {
		return nil, errStackUnderflow
	}
	v := s.data[n-1]
	s.data = s.data[:n-1]
	return v, nil
}

func (s *stack) peek(fromTop int) (*uint256.Int, error) {
	idx := len(s.data) - 1 - fromTop
	if idx < 0 {
		return nil, errStackUnderflow
	}
	return s.data[idx], nil
}

func (s *stack) swap(fromTop int) error {
	n := len(s.data)
	idx := n - 1 - fromTop
	if idx < 0 || n == 0 {
		return errStackUnderflow
	}
	s.data[n-1], s.data[idx] = s.data[idx], s.data[n-1]
	return nil
}

func (s *stack) dup(fromTop int) error {
	v, err := s.peek(fromTop)
	if err != nil {
		return err
	}
	return s.push(new(uint256.Int).Set(v))
}
