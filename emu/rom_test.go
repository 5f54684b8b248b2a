package emu

import "testing"

// makeTestROM builds a cartridge image of size bytes with a valid header.
// Every byte outside the header holds the low byte of its offset.
func makeTestROM(size int) []byte {
	rom := make([]byte, size)
	for i := range rom {
		rom[i] = byte(i)
	}
	copy(rom[0xA0:0xAC], "DMATEST")
	for i := 0xA7; i < 0xAC; i++ {
		rom[i] = 0
	}
	rom[0xB2] = 0x96
	rom[0xBD] = HeaderChecksum(rom)
	return rom
}

func TestValidateHeader_Valid(t *testing.T) {
	rom := makeTestROM(0x400)
	if err := ValidateHeader(rom); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestValidateHeader_BadFixedValue(t *testing.T) {
	rom := makeTestROM(0x400)
	rom[0xB2] = 0x00
	if err := ValidateHeader(rom); err == nil {
		t.Error("expected error for bad fixed value, got nil")
	}
}

func TestValidateHeader_BadChecksum(t *testing.T) {
	rom := makeTestROM(0x400)
	rom[0xBD]++
	if err := ValidateHeader(rom); err == nil {
		t.Error("expected error for checksum mismatch, got nil")
	}
}

func TestValidateHeader_TooShort(t *testing.T) {
	rom := make([]byte, 0x80)
	if err := ValidateHeader(rom); err == nil {
		t.Error("expected error for short ROM, got nil")
	}
}

func TestHeaderChecksum_ZeroHeader(t *testing.T) {
	rom := make([]byte, romHeaderSize)
	if got := HeaderChecksum(rom); got != 0xE7 {
		t.Errorf("expected 0xE7, got 0x%02X", got)
	}
}

func TestTitle(t *testing.T) {
	rom := makeTestROM(0x400)
	if got := Title(rom); got != "DMATEST" {
		t.Errorf("expected %q, got %q", "DMATEST", got)
	}
	if got := Title(rom[:0x10]); got != "" {
		t.Errorf("expected empty title for short ROM, got %q", got)
	}
}
