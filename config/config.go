// Package config holds the legalization options read from the
// compiler's settings bag.
//
package config // import "github.com/andrewarchi/netlegal/config"

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel split sizes.
const (
	UseMinimum  = -1 // Split to the hard block's minimum size
	UseDeclared = -2 // Split to the hard block's declared size
)

// Padding selects the constant used to pad hard multiplier operands.
type Padding uint8

// Padding constants.
const (
	PadZero     Padding = iota // Pad with the constant 0 net
	PadDontCare                // Pad with the don't care net
)

func (p Padding) String() string {
	if p == PadDontCare {
		return "pad"
	}
	return "zero"
}

// Options are the recognized legalization settings.
type Options struct {
	FixedHardAdder      bool // fixed_hard_adder
	FixedHardMultiplier bool // fixed_hard_multiplier
	AdderCinGlobal      bool // adder_cin_global

	MinThresholdAdder int // min_threshold_adder, min_add
	MinHardMultiplier int // min_hard_multiplier

	SplitMemoryDepth int // split_memory_depth, in address bits
	SplitMemoryWidth int // split_memory_width, in data bits

	SoftLogicMemoryDepthThreshold int // soft_logic_memory_depth_threshold, in words
	SoftLogicMemoryWidthThreshold int // soft_logic_memory_width_threshold, in bits

	MultPadding Padding // mult_padding
}

// Default returns the options used when the settings bag is empty.
func Default() *Options {
	return &Options{
		SplitMemoryDepth: UseDeclared,
		SplitMemoryWidth: UseDeclared,
	}
}

// Parse reads options from a settings bag over the defaults. Keys are
// applied in sorted order so that errors are reported deterministically.
func Parse(settings map[string]string) (*Options, error) {
	opts := Default()
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := opts.Set(key, settings[key]); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// Set assigns a single option.
func (opts *Options) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "fixed_hard_adder":
		opts.FixedHardAdder, err = parseBool(value)
	case "fixed_hard_multiplier":
		opts.FixedHardMultiplier, err = parseBool(value)
	case "adder_cin_global":
		opts.AdderCinGlobal, err = parseBool(value)
	case "min_threshold_adder", "min_add":
		opts.MinThresholdAdder, err = parseWidth(value, false)
	case "min_hard_multiplier":
		opts.MinHardMultiplier, err = parseWidth(value, false)
	case "split_memory_depth":
		opts.SplitMemoryDepth, err = parseWidth(value, true)
	case "split_memory_width":
		opts.SplitMemoryWidth, err = parseWidth(value, true)
	case "soft_logic_memory_depth_threshold":
		opts.SoftLogicMemoryDepthThreshold, err = parseWidth(value, false)
	case "soft_logic_memory_width_threshold":
		opts.SoftLogicMemoryWidthThreshold, err = parseWidth(value, false)
	case "mult_padding":
		opts.MultPadding, err = parsePadding(value)
	default:
		return errors.Errorf("config: unknown option %q", key)
	}
	return errors.Wrapf(err, "config: option %s", key)
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean %q", value)
}

func parseWidth(value string, sentinels bool) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Errorf("invalid integer %q", value)
	}
	if n < 0 && !(sentinels && (n == UseMinimum || n == UseDeclared)) {
		return 0, errors.Errorf("negative width %d", n)
	}
	return n, nil
}

func parsePadding(value string) (Padding, error) {
	switch strings.ToLower(value) {
	case "0", "zero", "gnd":
		return PadZero, nil
	case "-1", "1", "pad", "dontcare":
		return PadDontCare, nil
	}
	return PadZero, errors.Errorf("invalid padding %q", value)
}

// Settings renders the options as a settings bag, the inverse of Parse.
func (opts *Options) Settings() map[string]string {
	return map[string]string{
		"fixed_hard_adder":                  strconv.FormatBool(opts.FixedHardAdder),
		"fixed_hard_multiplier":             strconv.FormatBool(opts.FixedHardMultiplier),
		"adder_cin_global":                  strconv.FormatBool(opts.AdderCinGlobal),
		"min_threshold_adder":               strconv.Itoa(opts.MinThresholdAdder),
		"min_hard_multiplier":               strconv.Itoa(opts.MinHardMultiplier),
		"split_memory_depth":                strconv.Itoa(opts.SplitMemoryDepth),
		"split_memory_width":                strconv.Itoa(opts.SplitMemoryWidth),
		"soft_logic_memory_depth_threshold": strconv.Itoa(opts.SoftLogicMemoryDepthThreshold),
		"soft_logic_memory_width_threshold": strconv.Itoa(opts.SoftLogicMemoryWidthThreshold),
		"mult_padding":                      opts.MultPadding.String(),
	}
}

// Resolve returns the split size selected by a configured value: a
// positive value as is, or the minimum or declared size of the hard
// block for the sentinels. Zero selects the declared size.
func Resolve(value, minimum, declared int) int {
	switch {
	case value == UseMinimum:
		return minimum
	case value == UseDeclared || value == 0:
		return declared
	}
	return value
}

func (opts *Options) String() string {
	settings := opts.Settings()
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, settings[key])
	}
	return b.String()
}
