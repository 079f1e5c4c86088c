package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	dirchecker "github.com/mattkeenan/dirchecker/pkg"
)

// OptionType defines the type of value an option expects
type OptionType int

const (
	OptionTypeBool OptionType = iota
	OptionTypeString
	OptionTypeInt
	OptionTypeList // comma separated outside {a,b} braces, may be repeated
)

// OptionDef defines a command-line option
type OptionDef struct {
	Long        string
	Short       string
	Type        OptionType
	Description string
	Default     string
}

// ParsedOptions holds the parsed command-line options
type ParsedOptions struct {
	values        map[string]string
	lists         map[string][]string
	args          []string
	defs          map[string]*OptionDef
	order         []string          // definition order, for usage output
	shortMap      map[string]string // short name -> long name
	explicitlySet map[string]bool
}

// NewParsedOptions creates a new options parser
func NewParsedOptions() *ParsedOptions {
	return &ParsedOptions{
		values:        make(map[string]string),
		lists:         make(map[string][]string),
		defs:          make(map[string]*OptionDef),
		shortMap:      make(map[string]string),
		explicitlySet: make(map[string]bool),
	}
}

// DefineOption defines a command-line option
func (p *ParsedOptions) DefineOption(long, short string, optType OptionType, defaultValue, description string) {
	def := &OptionDef{
		Long:        long,
		Short:       short,
		Type:        optType,
		Description: description,
		Default:     defaultValue,
	}
	p.defs[long] = def
	p.order = append(p.order, long)
	if short != "" {
		p.shortMap[short] = long
	}
	if defaultValue != "" {
		p.values[long] = defaultValue
	}
}

// Parse parses command-line arguments. Everything after "--" is positional.
func (p *ParsedOptions) Parse(args []string) error {
	consumed := make([]bool, len(args))
	positionalFrom := len(args)

	for i := 0; i < len(args); i++ {
		if consumed[i] {
			continue
		}
		arg := args[i]

		switch {
		case arg == "--":
			consumed[i] = true
			positionalFrom = i + 1
			i = len(args)
		case strings.HasPrefix(arg, "--"):
			consumed[i] = true
			if err := p.parseLongOption(arg); err != nil {
				return err
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			consumed[i] = true
			if err := p.parseShortOptions(arg, args, i, consumed); err != nil {
				return err
			}
		}
	}

	for i := 0; i < len(args); i++ {
		if !consumed[i] || i >= positionalFrom {
			p.args = append(p.args, args[i])
		}
	}
	return nil
}

// parseLongOption parses --option or --option=value
func (p *ParsedOptions) parseLongOption(arg string) error {
	optName, optValue, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")

	def, exists := p.defs[optName]
	if !exists {
		return fmt.Errorf("unknown option: --%s", optName)
	}

	if def.Type == OptionTypeBool {
		if !hasValue {
			return p.set(def, "true")
		}
		switch optValue {
		case "true", "1":
			return p.set(def, "true")
		case "false", "0":
			return p.set(def, "false")
		default:
			return fmt.Errorf("invalid boolean value for --%s: %s", optName, optValue)
		}
	}

	if !hasValue || optValue == "" {
		return fmt.Errorf("option --%s requires a value (use --%s=value)", optName, optName)
	}
	return p.set(def, optValue)
}

// parseShortOptions parses -o or bundled -abc. A repeated int option counts (-vvv = 3).
func (p *ParsedOptions) parseShortOptions(arg string, args []string, i int, consumed []bool) error {
	shortOpts := strings.TrimPrefix(arg, "-")

	var seen []string
	optCounts := make(map[string]int)
	for _, r := range shortOpts {
		short := string(r)
		if _, exists := p.shortMap[short]; !exists {
			return fmt.Errorf("unknown option: -%s", short)
		}
		if optCounts[short] == 0 {
			seen = append(seen, short)
		}
		optCounts[short]++
	}

	for _, short := range seen {
		def := p.defs[p.shortMap[short]]
		count := optCounts[short]

		switch def.Type {
		case OptionTypeBool:
			p.set(def, "true")

		case OptionTypeInt:
			value := "1"
			if count > 1 {
				value = strconv.Itoa(count)
			} else if next := p.findNextAvailableArg(args, i, consumed, true); next != "" {
				value = next
			}
			p.set(def, value)

		case OptionTypeString, OptionTypeList:
			next := p.findNextAvailableArg(args, i, consumed, false)
			if next == "" {
				return fmt.Errorf("option -%s requires a value", short)
			}
			if err := p.set(def, next); err != nil {
				return err
			}
		}
	}
	return nil
}

// set stores a value, validating ints and appending lists
func (p *ParsedOptions) set(def *OptionDef, value string) error {
	switch def.Type {
	case OptionTypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid integer value for --%s: %s", def.Long, value)
		}
	case OptionTypeList:
		p.lists[def.Long] = append(p.lists[def.Long], dirchecker.SplitPatterns(value)...)
	}
	p.values[def.Long] = value
	p.explicitlySet[def.Long] = true
	return nil
}

// findNextAvailableArg finds the next unconsumed non-option argument and consumes it
func (p *ParsedOptions) findNextAvailableArg(args []string, startIdx int, consumed []bool, intOnly bool) string {
	for i := startIdx + 1; i < len(args); i++ {
		if consumed[i] || strings.HasPrefix(args[i], "-") {
			continue
		}
		if intOnly {
			if _, err := strconv.Atoi(args[i]); err != nil {
				continue
			}
		}
		consumed[i] = true
		return args[i]
	}
	return ""
}

// GetString returns a string option value
func (p *ParsedOptions) GetString(option string) string {
	return p.values[option]
}

// GetInt returns an integer option value
func (p *ParsedOptions) GetInt(option string) int {
	if val, exists := p.values[option]; exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return 0
}

// GetBool returns a boolean option value
func (p *ParsedOptions) GetBool(option string) bool {
	return p.values[option] == "true"
}

// GetList returns every item given for a list option
func (p *ParsedOptions) GetList(option string) []string {
	return p.lists[option]
}

// IsSet returns true if an option was explicitly set
func (p *ParsedOptions) IsSet(option string) bool {
	return p.explicitlySet[option]
}

// GetArgs returns non-option arguments
func (p *ParsedOptions) GetArgs() []string {
	return p.args
}

// ShowUsage writes the option summary in definition order
func (p *ParsedOptions) ShowUsage(w io.Writer) {
	for _, long := range p.order {
		def := p.defs[long]

		shortOpt := "    "
		if def.Short != "" {
			shortOpt = fmt.Sprintf("-%s, ", def.Short)
		}

		var valueDesc string
		switch def.Type {
		case OptionTypeString:
			valueDesc = "=VALUE"
		case OptionTypeInt:
			valueDesc = "=N"
		case OptionTypeList:
			valueDesc = "=A,B"
		}

		flag := "--" + def.Long + valueDesc
		fmt.Fprintf(w, "  %s%-24s %s", shortOpt, flag, def.Description)
		if def.Default != "" && def.Default != "false" && def.Default != "0" {
			fmt.Fprintf(w, " (default: %s)", def.Default)
		}
		fmt.Fprintln(w)
	}
}
