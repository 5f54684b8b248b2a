// Package cli provides a command-line runner for the DMA subsystem.
// It drives a System from a Lua script: register writes, h-blank and audio
// triggers, and memory inspection.
package cli

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/spf13/afero"
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emgba/emu"
	lua "github.com/yuin/gopher-lua"
)

// Runner executes scripts against a System.
type Runner struct {
	sys    *emu.System
	fs     afero.Fs
	logger *log.Logger
	state  *lua.LState
}

// NewRunner creates a Runner wrapping sys. Scripts are loaded from fs and
// their log() output goes to logger.
func NewRunner(sys *emu.System, fs afero.Fs, logger *log.Logger) *Runner {
	r := &Runner{
		sys:    sys,
		fs:     fs,
		logger: logger,
		state:  lua.NewState(),
	}
	r.register()
	return r
}

// Close releases the script interpreter.
func (r *Runner) Close() {
	if r.state != nil {
		r.state.Close()
		r.state = nil
	}
}

// RunFile loads and runs a script from the runner's filesystem.
func (r *Runner) RunFile(path string) error {
	src, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if err := r.state.DoString(string(src)); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// RunString runs a script held in memory.
func (r *Runner) RunString(src string) error {
	if err := r.state.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

func (r *Runner) register() {
	funcs := map[string]lua.LGFunction{
		"read8":             r.luaRead8,
		"read16":            r.luaRead16,
		"read32":            r.luaRead32,
		"write8":            r.luaWrite8,
		"write16":           r.luaWrite16,
		"write32":           r.luaWrite32,
		"hblank":            r.luaHBlank,
		"frame":             r.luaFrame,
		"drain":             r.luaDrain,
		"transfer_register": r.luaTransferRegister,
		"irq_pending":       r.luaIRQPending,
		"state":             r.luaState,
		"cursors":           r.luaCursors,
		"dump":              r.luaDump,
		"save_ram":          r.luaSaveRAM,
		"load_ram":          r.luaLoadRAM,
		"log":               r.luaLog,
	}
	for name, fn := range funcs {
		r.state.SetGlobal(name, r.state.NewFunction(fn))
	}
}

func checkAddr(L *lua.LState, n int) uint32 {
	return uint32(L.CheckInt64(n))
}

func checkChannel(L *lua.LState, n int) int {
	ch := L.CheckInt(n)
	if ch < 0 || ch > 3 {
		L.ArgError(n, "channel must be 0-3")
	}
	return ch
}

func (r *Runner) luaRead8(L *lua.LState) int {
	L.Push(lua.LNumber(r.sys.Bus.Read8(checkAddr(L, 1))))
	return 1
}

func (r *Runner) luaRead16(L *lua.LState) int {
	L.Push(lua.LNumber(r.sys.Bus.Read16(checkAddr(L, 1))))
	return 1
}

func (r *Runner) luaRead32(L *lua.LState) int {
	L.Push(lua.LNumber(r.sys.Bus.Read32(checkAddr(L, 1))))
	return 1
}

func (r *Runner) luaWrite8(L *lua.LState) int {
	r.sys.Bus.Write8(checkAddr(L, 1), uint8(L.CheckInt64(2)))
	return 0
}

func (r *Runner) luaWrite16(L *lua.LState) int {
	r.sys.Bus.Write16(checkAddr(L, 1), uint16(L.CheckInt64(2)))
	return 0
}

func (r *Runner) luaWrite32(L *lua.LState) int {
	r.sys.Bus.Write32(checkAddr(L, 1), uint32(L.CheckInt64(2)))
	return 0
}

// hblank() signals one h-blank to every armed channel.
func (r *Runner) luaHBlank(L *lua.LState) int {
	r.sys.DMA.HBlank()
	return 0
}

// frame([n]) runs n frames, default 1.
func (r *Runner) luaFrame(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for i := 0; i < n; i++ {
		r.sys.RunFrame()
	}
	return 0
}

// drain(fifo, n) plays n samples from a FIFO, services audio DMA and
// returns how many samples were played.
func (r *Runner) luaDrain(L *lua.LState) int {
	fifo := L.CheckInt(1)
	if fifo < 0 || fifo > 1 {
		L.ArgError(1, "fifo must be 0 or 1")
	}
	count := L.CheckInt(2)
	if count < 0 {
		L.ArgError(2, "count must not be negative")
	}
	played := r.sys.Sound.Drain(fifo, count)
	r.sys.ServiceAudio()
	L.Push(lua.LNumber(played))
	return 1
}

func (r *Runner) luaTransferRegister(L *lua.LState) int {
	L.Push(lua.LNumber(r.sys.DMA.TransferRegister()))
	return 1
}

func (r *Runner) luaIRQPending(L *lua.LState) int {
	L.Push(lua.LNumber(r.sys.IRQ.Pending()))
	return 1
}

func (r *Runner) luaState(L *lua.LState) int {
	L.Push(lua.LString(r.sys.DMA.State(checkChannel(L, 1)).String()))
	return 1
}

func (r *Runner) luaCursors(L *lua.LState) int {
	src, dst := r.sys.DMA.Cursors(checkChannel(L, 1))
	L.Push(lua.LNumber(src))
	L.Push(lua.LNumber(dst))
	return 2
}

// dump(addr, n) returns n bytes of guest memory as a hex string, stopping
// at the first unmapped address.
func (r *Runner) luaDump(L *lua.LState) int {
	addr := checkAddr(L, 1)
	size := L.CheckInt(2)
	if size < 0 {
		L.ArgError(2, "size must not be negative")
	}
	buf := make([]byte, size)
	n := r.sys.Bus.ReadMemory(addr, buf)
	L.Push(lua.LString(hex.EncodeToString(buf[:n])))
	return 1
}

// systemRAMSize returns the size of the inspector's system RAM region.
func systemRAMSize(m emucore.MemoryMapper) int {
	for _, region := range m.MemoryMap() {
		if region.Type == emucore.MemorySystemRAM {
			return int(region.Size)
		}
	}
	return 0
}

// save_ram(path) writes work RAM to a file.
func (r *Runner) luaSaveRAM(L *lua.LState) int {
	path := L.CheckString(1)
	var m emucore.MemoryMapper = r.sys.Bus
	if err := afero.WriteFile(r.fs, path, m.ReadRegion(emucore.MemorySystemRAM), 0644); err != nil {
		L.RaiseError("save_ram: %v", err)
	}
	return 0
}

// load_ram(path) restores work RAM from a file written by save_ram.
func (r *Runner) luaLoadRAM(L *lua.LState) int {
	path := L.CheckString(1)
	var m emucore.MemoryMapper = r.sys.Bus
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		L.RaiseError("load_ram: %v", err)
	}
	if want := systemRAMSize(m); len(data) != want {
		L.RaiseError("load_ram: %s is %d bytes, expected %d", path, len(data), want)
	}
	m.WriteRegion(emucore.MemorySystemRAM, data)
	return 0
}

func (r *Runner) luaLog(L *lua.LState) int {
	if r.logger != nil {
		r.logger.Print(L.CheckString(1))
	}
	return 0
}
