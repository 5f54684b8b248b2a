package emu

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) ReadAt(p []byte, off int64) (int, error) {
	return 0, errors.New("device not ready")
}

func TestROMCache_BlockHitAndMiss(t *testing.T) {
	c, err := NewROMCacheBytes(makeTestROM(0x1000), 4)
	require.NoError(t, err)

	blk := c.Block(0x210)
	require.Len(t, blk, ROMBlockSize)
	assert.Equal(t, byte(0x10), blk[0x10])

	c.Block(0x3FE)
	fetches, hits := c.Stats()
	assert.Equal(t, 1, fetches)
	assert.Equal(t, 1, hits)
}

func TestROMCache_Eviction(t *testing.T) {
	c, err := NewROMCacheBytes(makeTestROM(0x1000), 2)
	require.NoError(t, err)

	c.Block(0x000)
	c.Block(0x200)
	c.Block(0x400)
	c.Block(0x000)

	fetches, hits := c.Stats()
	assert.Equal(t, 4, fetches)
	assert.Equal(t, 0, hits)
}

func TestROMCache_PastEndIsOpenBus(t *testing.T) {
	c, err := NewROMCacheBytes(makeTestROM(0x300), 4)
	require.NoError(t, err)

	blk := c.Block(0x200)
	assert.Equal(t, byte(0xFF), blk[0xFF], "image data")
	assert.Equal(t, byte(0x80), blk[0x100], "low byte of 0x300>>1")
	assert.Equal(t, byte(0x01), blk[0x101], "high byte of 0x300>>1")

	blk = c.Block(0x1000)
	assert.Equal(t, []byte{0x00, 0x08, 0x01, 0x08}, blk[:4])
	assert.NoError(t, c.Err())
}

func TestROMCache_ReadErrorNotCached(t *testing.T) {
	c, err := NewROMCache(failingReader{}, 0x1000, 4)
	require.NoError(t, err)

	blk := c.Block(0)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00}, blk[:4])
	require.Error(t, c.Err())

	c.Block(0)
	fetches, hits := c.Stats()
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 0, hits)
}

func TestROMCache_InvalidCapacity(t *testing.T) {
	_, err := NewROMCacheBytes(makeTestROM(0x400), 0)
	assert.Error(t, err)
}

func TestOpenROM(t *testing.T) {
	fs := afero.NewMemMapFs()
	rom := makeTestROM(0x800)
	require.NoError(t, afero.WriteFile(fs, "/roms/test.gba", rom, 0644))

	c, err := OpenROM(fs, "/roms/test.gba", DefaultCacheBlocks)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, int64(0x800), c.Size())
	assert.Equal(t, byte(0x34), c.Block(0x634)[0x34])
}

func TestOpenROM_BadHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	rom := makeTestROM(0x800)
	rom[0xB2] = 0
	require.NoError(t, afero.WriteFile(fs, "/bad.gba", rom, 0644))

	_, err := OpenROM(fs, "/bad.gba", DefaultCacheBlocks)
	assert.ErrorContains(t, err, "fixed header")
}

func TestOpenROM_Missing(t *testing.T) {
	_, err := OpenROM(afero.NewMemMapFs(), "/missing.gba", DefaultCacheBlocks)
	assert.ErrorContains(t, err, "open ROM")
}
