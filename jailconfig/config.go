// Package jailconfig loads the on-disk command configuration schema from
// spec.md §6.1. The schema itself is out of spec scope beyond its shape
// ("see §6 for the expected schema only"), so this package's existence is
// an ambient-stack addition: every jailcall deployment needs some way to
// get MsgConfig values from a file onto a Defender, and the pack's own
// config-loading idiom (a hand-rolled TOML reader in
// greynewell-mist-go/config/toml.go, and BurntSushi/toml as an indirect
// dependency of joeycumines-go-utilpkg) points squarely at TOML rather
// than invent a bespoke format.
package jailconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vnykmshr/jailcall"
)

// fileSchema mirrors spec.md §6.1's nesting, re-expressed as TOML tables:
//
//	[defender.command.widget.circuit_breaker]
//	max_failures  = 5
//	call_timeout  = "200ms"
//	reset_timeout = "5s"
//
//	[defender.command.widget]
//	dispatcher = "pinned"
type fileSchema struct {
	Defender struct {
		Command map[string]commandBlock `toml:"command"`
	} `toml:"defender"`
}

type commandBlock struct {
	CircuitBreaker circuitBreakerBlock `toml:"circuit_breaker"`
	Dispatcher     string              `toml:"dispatcher"`
}

type circuitBreakerBlock struct {
	// MaxFailures is a pointer so an explicit `max_failures = 0` can be
	// told apart from the key being absent from the file; toml.Decode
	// only sets it when the key is present, even when the value is 0.
	MaxFailures  *uint32 `toml:"max_failures"`
	CallTimeout  string  `toml:"call_timeout"`
	ResetTimeout string  `toml:"reset_timeout"`
}

// Load reads and parses the config file at path. Unknown keys are ignored
// (toml.Decode only populates fields present in fileSchema); a
// command key absent from the file gets jailcall.DefaultMsgConfig().
func Load(path string) (map[jailcall.CommandKey]jailcall.MsgConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jailconfig: read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse decodes a config document already read into memory.
func Parse(src string) (map[jailcall.CommandKey]jailcall.MsgConfig, error) {
	var doc fileSchema
	if _, err := toml.Decode(src, &doc); err != nil {
		return nil, fmt.Errorf("jailconfig: parse: %w", err)
	}

	out := make(map[jailcall.CommandKey]jailcall.MsgConfig, len(doc.Defender.Command))
	for name, block := range doc.Defender.Command {
		cfg, err := toMsgConfig(block)
		if err != nil {
			return nil, fmt.Errorf("jailconfig: command %q: %w", name, err)
		}
		out[jailcall.CommandKey(name)] = cfg
	}
	return out, nil
}

func toMsgConfig(block commandBlock) (jailcall.MsgConfig, error) {
	cfg := jailcall.DefaultMsgConfig()

	if mf := block.CircuitBreaker.MaxFailures; mf != nil {
		if *mf == 0 {
			return cfg, fmt.Errorf("max_failures: must be greater than 0")
		}
		cfg.MaxFailures = *mf
	}
	if block.CircuitBreaker.CallTimeout != "" {
		d, err := time.ParseDuration(block.CircuitBreaker.CallTimeout)
		if err != nil {
			return cfg, fmt.Errorf("call_timeout: %w", err)
		}
		cfg.CallTimeout = d
	}
	if block.CircuitBreaker.ResetTimeout != "" {
		d, err := time.ParseDuration(block.CircuitBreaker.ResetTimeout)
		if err != nil {
			return cfg, fmt.Errorf("reset_timeout: %w", err)
		}
		cfg.ResetTimeout = d
	}

	switch block.Dispatcher {
	case "", "default":
		cfg.Dispatcher = jailcall.DispatcherDefault
	case "pinned":
		cfg.Dispatcher = jailcall.DispatcherPinned
	default:
		return cfg, fmt.Errorf("unknown dispatcher %q", block.Dispatcher)
	}

	return cfg, nil
}
