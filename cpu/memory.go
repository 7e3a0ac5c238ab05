package cpu

import (
	"encoding/binary"
)

const (
	MEMORY_SIZE = 320_000 // Default size of memory, in bytes.
)

// Memory is the flat, byte addressed memory shared by code, data and stack.
type Memory []byte

// NewMemory returns a zeroed memory of size bytes.
func NewMemory(size uint64) Memory {
	return make(Memory, size)
}

// span returns the slice [addr, addr+size) of memory, or ErrMemoryRange if
// any byte of it lies outside of memory.
func (mem Memory) span(addr uint64, size int) (data []byte, err error) {
	length := uint64(len(mem))
	if addr > length || length-addr < uint64(size) {
		err = ErrMemoryRange
		return
	}

	data = mem[addr : addr+uint64(size)]
	return
}

// Read returns the big-endian value of width ct at addr.
func (mem Memory) Read(addr uint64, ct CodeType) (value uint64, err error) {
	data, err := mem.span(addr, ct.Size())
	if err != nil {
		return
	}

	switch ct {
	case TYPE_BYTE:
		value = uint64(data[0])
	case TYPE_DBYTE:
		value = uint64(binary.BigEndian.Uint16(data))
	case TYPE_QBYTE:
		value = uint64(binary.BigEndian.Uint32(data))
	default:
		value = binary.BigEndian.Uint64(data)
	}

	return
}

// Write stores value, truncated to width ct, big-endian at addr.
func (mem Memory) Write(addr uint64, ct CodeType, value uint64) (err error) {
	data, err := mem.span(addr, ct.Size())
	if err != nil {
		return
	}

	switch ct {
	case TYPE_BYTE:
		data[0] = uint8(value)
	case TYPE_DBYTE:
		binary.BigEndian.PutUint16(data, uint16(value))
	case TYPE_QBYTE:
		binary.BigEndian.PutUint32(data, uint32(value))
	default:
		binary.BigEndian.PutUint64(data, value)
	}

	return
}
