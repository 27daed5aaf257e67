// Package tools is the closed catalog of named tools the gateway can run.
//
// A tool is an external executable plus a typed argument schema. The registry
// only translates a tool name and caller-supplied key/value arguments into an
// argv; execution goes through the same policy and executor path as a direct
// command.
package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category groups tools by purpose.
type Category string

const (
	CategoryNetwork      Category = "network"
	CategorySecurity     Category = "security"
	CategoryForensic     Category = "forensic"
	CategoryCrypto       Category = "crypto"
	CategorySystem       Category = "system"
	CategoryAI           Category = "ai"
	CategoryWireless     Category = "wireless"
	CategoryExploitation Category = "exploitation"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryNetwork,
	CategorySecurity,
	CategoryForensic,
	CategoryCrypto,
	CategorySystem,
	CategoryAI,
	CategoryWireless,
	CategoryExploitation,
}

// ParseCategory returns the Category named by s.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ArgType is the value type of a tool argument.
type ArgType string

const (
	TypeString ArgType = "string"
	TypeInt    ArgType = "int"
	TypeBool   ArgType = "bool"
)

// ArgSpec declares one tool argument.
type ArgSpec struct {
	Name     string
	Type     ArgType
	Required bool
	// Default is substituted when the argument is absent. Empty means none.
	Default string
	// Max is the maximum length for strings and the maximum value for ints.
	// Zero means unbounded.
	Max int
	// Positional arguments are rendered as bare values after all flags.
	Positional bool
	Help       string
}

// Flag returns the rendered flag for the argument: "-x" for single-character
// names, "--dash-name" otherwise.
func (a ArgSpec) Flag() string {
	if len(a.Name) == 1 {
		return "-" + a.Name
	}
	return "--" + strings.ReplaceAll(a.Name, "_", "-")
}

// Spec describes a registered tool. Specs are read-only after startup.
type Spec struct {
	ID          ToolID
	Name        string
	Category    Category
	Executable  string
	Description string
	// Subcommand is placed before any rendered argument.
	Subcommand []string
	Args       []ArgSpec
	Timeout    time.Duration
}

// Arg returns the schema entry named name.
func (s Spec) Arg(name string) (ArgSpec, bool) {
	for _, a := range s.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgSpec{}, false
}

// Args holds caller-supplied tool arguments. JSON strings, numbers and
// booleans are all accepted and kept in their textual form.
type Args map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Args) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Args, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			out[k] = n.String()
			continue
		}
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			out[k] = strconv.FormatBool(b)
			continue
		}
		return fmt.Errorf("argument %q: value must be a string, number or boolean", k)
	}
	*a = out
	return nil
}

// Request is a caller's request to run a tool.
type Request struct {
	Name     string `json:"-"`
	Category string `json:"category"`
	Args     Args   `json:"args,omitempty"`
	// Timeout in seconds. Zero selects the tool's configured timeout.
	Timeout int `json:"timeout,omitempty"`
}

// Invocation is a tool request resolved to a concrete command.
type Invocation struct {
	Tool    string
	Command string
	Args    []string
	Timeout time.Duration
}
