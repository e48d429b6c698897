package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool // log every instruction at trace level (very slow)
	DMAStall bool // charge OAM DMA bus stalls against the CPU
}
