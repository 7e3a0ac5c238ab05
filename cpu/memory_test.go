package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryReadWrite(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(16)

	assert.NoError(mem.Write(0, TYPE_QBYTE, 0x11223344))
	assert.Equal([]byte{0x11, 0x22, 0x33, 0x44}, []byte(mem[0:4]))

	assert.NoError(mem.Write(8, TYPE_OBYTE, 0x0102030405060708))
	assert.Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte(mem[8:16]))

	// Writes truncate to the width.
	assert.NoError(mem.Write(4, TYPE_DBYTE, 0xaabbccdd))
	assert.Equal([]byte{0xcc, 0xdd}, []byte(mem[4:6]))

	table := []struct {
		addr  uint64
		ct    CodeType
		value uint64
	}{
		{0, TYPE_BYTE, 0x11},
		{0, TYPE_DBYTE, 0x1122},
		{0, TYPE_QBYTE, 0x11223344},
		{4, TYPE_DBYTE, 0xccdd},
		{8, TYPE_OBYTE, 0x0102030405060708},
		{15, TYPE_BYTE, 8},
	}

	for _, entry := range table {
		value, err := mem.Read(entry.addr, entry.ct)
		assert.NoError(err)
		assert.Equal(entry.value, value, "%v @ %d", entry.ct, entry.addr)
	}
}

func TestMemoryRange(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(16)

	table := []struct {
		addr uint64
		ct   CodeType
		ok   bool
	}{
		{15, TYPE_BYTE, true},
		{16, TYPE_BYTE, false},
		{14, TYPE_DBYTE, true},
		{15, TYPE_DBYTE, false},
		{12, TYPE_QBYTE, true},
		{13, TYPE_QBYTE, false},
		{8, TYPE_OBYTE, true},
		{9, TYPE_OBYTE, false},
		{math.MaxUint64, TYPE_BYTE, false},
		{math.MaxUint64 - 3, TYPE_OBYTE, false},
	}

	for _, entry := range table {
		_, err := mem.Read(entry.addr, entry.ct)
		werr := mem.Write(entry.addr, entry.ct, 0)
		if entry.ok {
			assert.NoError(err)
			assert.NoError(werr)
		} else {
			assert.ErrorIs(err, ErrMemoryRange, "%v @ %d", entry.ct, entry.addr)
			assert.ErrorIs(werr, ErrMemoryRange, "%v @ %d", entry.ct, entry.addr)
		}
	}
}
