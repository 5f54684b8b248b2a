package emu

import (
	"fmt"
	"strings"
)

// romHeaderSize is the size of the cartridge header at the start of ROM.
const romHeaderSize = 0xC0

// ValidateHeader checks the fixed value at $B2 and the header complement
// checksum at $BD.
func ValidateHeader(rom []byte) error {
	if len(rom) < romHeaderSize {
		return fmt.Errorf("ROM too short to contain cartridge header (%d bytes)", len(rom))
	}
	if rom[0xB2] != 0x96 {
		return fmt.Errorf("bad fixed header value: %02X", rom[0xB2])
	}
	if sum := HeaderChecksum(rom); sum != rom[0xBD] {
		return fmt.Errorf("header checksum mismatch: header=%02X computed=%02X", rom[0xBD], sum)
	}
	return nil
}

// HeaderChecksum computes the complement check over $A0-$BC.
func HeaderChecksum(rom []byte) uint8 {
	var chk uint8
	for _, b := range rom[0xA0:0xBD] {
		chk -= b
	}
	return chk - 0x19
}

// Title returns the game title stored at $A0-$AB.
func Title(rom []byte) string {
	if len(rom) < 0xAC {
		return ""
	}
	return strings.TrimRight(string(rom[0xA0:0xAC]), "\x00 ")
}
