package emu

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

const (
	// ROMBlockSize is the unit in which cartridge data is staged.
	ROMBlockSize = 0x200
	// ROMBlockMask selects the offset within a block.
	ROMBlockMask = ROMBlockSize - 1

	// romAddrMask folds the wait-state mirrors onto one 32 MiB window.
	romAddrMask = 0x01FFFFFF

	// DefaultCacheBlocks is the number of blocks kept resident by default.
	DefaultCacheBlocks = 256
)

// BlockCache supplies cartridge data one block at a time. Block returns at
// least ROMBlockSize bytes holding the block that contains romAddr, starting
// at the block boundary. Callers must not read past one block without
// fetching again.
type BlockCache interface {
	Block(romAddr uint32) []byte
}

var _ BlockCache = (*ROMCache)(nil)

// ROMCache is a BlockCache that keeps the most recently used blocks of a
// cartridge image in memory.
type ROMCache struct {
	src    io.ReaderAt
	size   int64
	closer io.Closer
	blocks *lru.Cache[uint32, []byte]

	fetches int
	hits    int
	err     error
}

// NewROMCache creates a cache over size bytes of src holding up to capacity
// blocks.
func NewROMCache(src io.ReaderAt, size int64, capacity int) (*ROMCache, error) {
	blocks, err := lru.New[uint32, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("rom cache: %w", err)
	}
	return &ROMCache{
		src:    src,
		size:   size,
		blocks: blocks,
	}, nil
}

// NewROMCacheBytes creates a cache over an in-memory cartridge image.
func NewROMCacheBytes(rom []byte, capacity int) (*ROMCache, error) {
	return NewROMCache(bytes.NewReader(rom), int64(len(rom)), capacity)
}

// OpenROM opens a cartridge image on fs, validates its header and returns a
// cache over it. The file stays open until Close.
func OpenROM(fs afero.Fs, path string, capacity int) (*ROMCache, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ROM: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat ROM: %w", err)
	}

	header := make([]byte, romHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("read ROM header: %w", err)
	}
	if err := ValidateHeader(header); err != nil {
		f.Close()
		return nil, err
	}

	c, err := NewROMCache(f, info.Size(), capacity)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// Block implements BlockCache.
func (c *ROMCache) Block(romAddr uint32) []byte {
	base := romAddr & romAddrMask &^ ROMBlockMask
	if blk, ok := c.blocks.Get(base); ok {
		c.hits++
		return blk
	}

	c.fetches++
	blk := make([]byte, ROMBlockSize)
	n := 0
	if int64(base) < c.size {
		var err error
		n, err = c.src.ReadAt(blk, int64(base))
		if err != nil && !errors.Is(err, io.EOF) {
			c.err = fmt.Errorf("read ROM block %08X: %w", base, err)
			fillOpenBus(blk[n:], base+uint32(n))
			return blk
		}
	}
	fillOpenBus(blk[n:], base+uint32(n))
	c.blocks.Add(base, blk)
	return blk
}

// fillOpenBus fills buf with what the cartridge bus returns past the end of
// the image: each half-word reads as bits 1-16 of its own address.
func fillOpenBus(buf []byte, addr uint32) {
	for i := range buf {
		a := addr + uint32(i)
		hw := uint16(a >> 1)
		buf[i] = uint8(hw >> ((a & 1) * 8))
	}
}

// Size returns the size of the cartridge image in bytes.
func (c *ROMCache) Size() int64 {
	return c.size
}

// Stats returns how many blocks were read from the image and how many
// lookups were served from memory.
func (c *ROMCache) Stats() (fetches, hits int) {
	return c.fetches, c.hits
}

// Err returns the last block read error, if any.
func (c *ROMCache) Err() error {
	return c.err
}

// Close releases the underlying image file, if the cache owns one.
func (c *ROMCache) Close() error {
	c.blocks.Purge()
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
