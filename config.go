package main

import "github.com/xyproto/env/v2"

// Config holds compiler defaults sourced from the environment, overridden
// by explicit CLI flags: reads operator defaults from the environment
// before flag.Parse() runs.
type Config struct {
	Verbose   bool
	NoColor   bool
	MaxErrors int
}

// LoadConfig reads TCC64_* environment variables into a Config, falling
// back to the same defaults the original compiler hard-codes.
func LoadConfig() Config {
	return Config{
		Verbose:   env.Bool("TCC64_VERBOSE"),
		NoColor:   env.Bool("TCC64_NO_COLOR"),
		MaxErrors: env.Int("TCC64_MAX_ERRORS", 10),
	}
}
