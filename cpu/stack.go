package cpu

import (
	"encoding/binary"
)

// The stack grows down from the top of memory. The stack pointer holds the
// address just below the most recently pushed value, so an empty stack has
// the stack pointer at the last byte of memory.
//
// Unlike memory reads and writes, stack values are little-endian.

// StackTop returns the stack pointer of an empty stack in mem.
func (mem Memory) StackTop() uint64 {
	return uint64(len(mem)) - 1
}

// Push stores value, truncated to width ct, below sp and returns the new
// stack pointer.
func (mem Memory) Push(sp uint64, ct CodeType, value uint64) (next uint64, err error) {
	size := uint64(ct.Size())

	// One past the highest byte written. Wraps to 0 on a full stack.
	top := sp + 1
	if top > uint64(len(mem)) {
		err = ErrMemoryRange
		return
	}
	if top < size {
		err = ErrStackFull
		return
	}

	base := top - size

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	copy(mem[base:top], buf[:size])

	next = base - 1
	return
}

// Pop reads a value of width ct from above sp and returns it with the new
// stack pointer.
func (mem Memory) Pop(sp uint64, ct CodeType) (value uint64, next uint64, err error) {
	size := uint64(ct.Size())
	length := uint64(len(mem))

	base := sp + 1
	if base > length || length-base < size {
		err = ErrStackEmpty
		return
	}

	var buf [8]byte
	copy(buf[:size], mem[base:base+size])
	value = binary.LittleEndian.Uint64(buf[:])

	next = sp + size
	return
}
