package main

import (
	"flag"
	"log"
	"os"

	"github.com/spf13/afero"
	"github.com/user-none/emgba/cli"
	"github.com/user-none/emgba/emu"
)

func main() {
	os.Exit(run())
}

// run executes the emulator and returns the process exit code. Errors are
// returned as a non-zero code rather than exiting so deferred cleanup runs.
func run() int {
	romPath := flag.String("rom", "", "path to cartridge ROM file")
	scriptPath := flag.String("script", "", "path to Lua script (required)")
	frames := flag.Int("frames", 0, "frames to run after the script finishes")
	wavPath := flag.String("wav", "", "write mixed direct-sound output to this WAV file")
	lowPass := flag.Float64("lpf", emu.DefaultLowPassHz, "WAV output low-pass cutoff in Hz (0 disables)")
	cacheBlocks := flag.Int("cache-blocks", emu.DefaultCacheBlocks, "ROM blocks kept in memory")
	sampleRate := flag.Int("rate", emu.DefaultSampleRate, "direct-sound sample rate in Hz")
	logPath := flag.String("log", "", "log file (default stderr)")
	flag.Parse()

	if *scriptPath == "" {
		log.Print("Script path is required. Usage: emgba -script <path> [-rom <path>]")
		return 2
	}

	fs := afero.NewOsFs()

	logger := log.New(os.Stderr, "emgba: ", log.Ltime)
	if *logPath != "" {
		f, err := fs.OpenFile(*logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			log.Printf("Failed to open log file: %v", err)
			return 1
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	opts := emu.Options{SampleRate: *sampleRate}
	var rom *emu.ROMCache
	if *romPath != "" {
		var err error
		rom, err = emu.OpenROM(fs, *romPath, *cacheBlocks)
		if err != nil {
			log.Printf("Failed to load ROM: %v", err)
			return 1
		}
		defer rom.Close()
		opts.ROM = rom
	}

	sys := emu.NewSystem(opts)
	runner := cli.NewRunner(sys, fs, logger)
	defer runner.Close()

	if err := runner.RunFile(*scriptPath); err != nil {
		logger.Print(err)
		return 1
	}
	for i := 0; i < *frames; i++ {
		sys.RunFrame()
	}

	if rom != nil {
		fetches, hits := rom.Stats()
		logger.Printf("ROM cache: %d fetches, %d hits", fetches, hits)
		if err := rom.Err(); err != nil {
			logger.Printf("Warning: ROM read error: %v", err)
		}
	}

	if *wavPath != "" {
		if err := cli.SaveWAV(fs, *wavPath, sys.Sound.MixPCM16(*sampleRate, *lowPass), *sampleRate); err != nil {
			logger.Printf("Failed to write WAV: %v", err)
			return 1
		}
		logger.Printf("Wrote %s", *wavPath)
	}
	return 0
}
