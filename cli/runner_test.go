package cli

import (
	"bytes"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user-none/emgba/emu"
)

func newTestRunner(t *testing.T) (*Runner, *emu.System, afero.Fs, *bytes.Buffer) {
	t.Helper()
	sys := emu.NewSystem(emu.Options{})
	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	r := NewRunner(sys, fs, log.New(&out, "", 0))
	t.Cleanup(r.Close)
	return r, sys, fs, &out
}

func TestRunner_ReadWrite(t *testing.T) {
	r, sys, _, _ := newTestRunner(t)
	require.NoError(t, r.RunString(`
		write32(0x02000000, 0xCAFEBABE)
		write16(0x03000000, 0x1234)
		write8(0x03000002, 0x56)
		assert(read32(0x02040000) == 0xCAFEBABE)
		assert(read16(0x03000000) == 0x1234)
		assert(read8(0x03000002) == 0x56)
	`))
	assert.Equal(t, uint32(0xCAFEBABE), sys.Bus.Read32(0x02000000))
}

func TestRunner_ImmediateTransfer(t *testing.T) {
	r, sys, _, _ := newTestRunner(t)
	require.NoError(t, r.RunString(`
		write16(0x02000000, 0x1111)
		write16(0x02000002, 0x2222)
		write32(0x040000B0, 0x02000000)
		write32(0x040000B4, 0x06000000)
		write16(0x040000B8, 2)
		write16(0x040000BA, 0x8000)
		local src, dst = cursors(0)
		assert(src == 0x02000004, "src cursor")
		assert(dst == 0x06000004, "dst cursor")
		assert(transfer_register() == 0x22222222)
		assert(state(0) == "idle")
	`))
	assert.Equal(t, uint16(0x2222), sys.Bus.Read16(0x06000002))
}

func TestRunner_HBlankAndFrame(t *testing.T) {
	r, sys, _, _ := newTestRunner(t)
	require.NoError(t, r.RunString(`
		write32(0x040000B0, 0x02000000)
		write32(0x040000B4, 0x03000000)
		write16(0x040000B8, 1)
		write16(0x040000BA, 0xE200)
		assert(state(0) == "hblank")
		hblank()
		assert(irq_pending() == 0x100)
		frame(2)
	`))
	src, _ := sys.DMA.Cursors(0)
	assert.Equal(t, uint32(0x02000002+2*emu.ScreenHeight*2), src)
}

func TestRunner_Drain(t *testing.T) {
	r, sys, _, _ := newTestRunner(t)
	require.NoError(t, r.RunString(`
		for i = 0, 15 do write8(0x02000000 + i, i) end
		write32(0x040000BC, 0x02000000)
		write32(0x040000C0, 0x040000A0)
		write16(0x040000C6, 0xB640)
		assert(state(1) == "audio")
		assert(drain(0, 0) == 0)
		assert(drain(0, 16) == 16)
	`))
	samples := sys.Sound.Samples(0)
	require.Len(t, samples, 16)
	assert.Equal(t, int8(15), samples[15])
}

func TestRunner_DumpAndLog(t *testing.T) {
	r, _, _, out := newTestRunner(t)
	require.NoError(t, r.RunString(`
		write32(0x03000000, 0x04030201)
		log(dump(0x03000000, 4))
		log(dump(0x0DFFFFFF, 4))
	`))
	assert.Equal(t, "01020304\nff\n", out.String())
}

func TestRunner_RunFile(t *testing.T) {
	r, sys, fs, _ := newTestRunner(t)
	require.NoError(t, afero.WriteFile(fs, "/scripts/poke.lua", []byte(`write16(0x05000000, 0x7FFF)`), 0644))
	require.NoError(t, r.RunFile("/scripts/poke.lua"))
	assert.Equal(t, uint16(0x7FFF), sys.Bus.Read16(0x05000000))
}

func TestRunner_Errors(t *testing.T) {
	r, _, _, _ := newTestRunner(t)

	err := r.RunFile("/missing.lua")
	assert.ErrorContains(t, err, "read script")

	err = r.RunString(`error("boom")`)
	assert.ErrorContains(t, err, "boom")

	err = r.RunString(`state(7)`)
	assert.ErrorContains(t, err, "channel must be 0-3")

	err = r.RunString(`drain(2, 1)`)
	assert.ErrorContains(t, err, "fifo must be 0 or 1")

	err = r.RunString(`dump(0x02000000, -1)`)
	assert.ErrorContains(t, err, "size must not be negative")
}

func TestRunner_SaveLoadRAM(t *testing.T) {
	r, sys, fs, _ := newTestRunner(t)
	require.NoError(t, r.RunString(`
		write8(0x03000000, 0xAB)
		write8(0x02000010, 0xCD)
		save_ram("/state/ram.bin")
		write8(0x03000000, 0)
		write8(0x02000010, 0)
	`))

	data, err := afero.ReadFile(fs, "/state/ram.bin")
	require.NoError(t, err)
	require.Len(t, data, 0x8000+0x40000)
	assert.Equal(t, byte(0xAB), data[0])
	assert.Equal(t, byte(0xCD), data[0x8000+0x10])

	require.NoError(t, r.RunString(`load_ram("/state/ram.bin")`))
	assert.Equal(t, uint8(0xAB), sys.Bus.Read8(0x03000000))
	assert.Equal(t, uint8(0xCD), sys.Bus.Read8(0x02000010))
}

func TestRunner_LoadRAMSizeMismatch(t *testing.T) {
	r, _, fs, _ := newTestRunner(t)
	require.NoError(t, afero.WriteFile(fs, "/short.bin", []byte{1, 2, 3}, 0644))
	err := r.RunString(`load_ram("/short.bin")`)
	assert.ErrorContains(t, err, "expected 294912")

	err = r.RunString(`load_ram("/missing.bin")`)
	assert.ErrorContains(t, err, "load_ram")
}
