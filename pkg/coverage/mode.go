package coverage

// Mode is the execution strategy of a run
type Mode int

const (
	// ModeParallel plans every chunk up front and merges the whole genome
	// in memory before writing.
	ModeParallel Mode = iota
	// ModeStreaming processes and writes one chromosome at a time.
	ModeStreaming
)

func (m Mode) String() string {
	switch m {
	case ModeParallel:
		return "parallel"
	case ModeStreaming:
		return "streaming"
	}
	return "unknown"
}

// SelectMode picks streaming when it is forced or when the input is larger
// than the memory limit.
func SelectMode(cfg Config, inputSize int64) Mode {
	if cfg.ForceStreaming {
		return ModeStreaming
	}
	limit := cfg.MemoryLimit
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	if inputSize > limit {
		return ModeStreaming
	}
	return ModeParallel
}
