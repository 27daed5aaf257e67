package tools

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxTimeout caps every tool invocation.
const MaxTimeout = 300 * time.Second

// ErrNotFound is returned for an unregistered tool name.
var ErrNotFound = errors.New("tool not found")

// ValidationError reports a malformed tool request. Its message is safe to
// return to the caller.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(tool, format string, args ...any) error {
	return &ValidationError{Tool: tool, Reason: fmt.Sprintf(format, args...)}
}

// Registry maps tool names to specs. It is immutable after construction and
// safe for concurrent use without locking.
type Registry struct {
	specs  []Spec
	byName map[string]int
}

// NewRegistry returns a registry holding the builtin catalog.
func NewRegistry() *Registry {
	r, err := NewRegistryFrom(builtin)
	if err != nil {
		panic(fmt.Sprintf("builtin tool catalog: %v", err))
	}
	return r
}

// NewRegistryFrom builds a registry from specs, rejecting duplicate names and
// malformed schemas.
func NewRegistryFrom(specs []Spec) (*Registry, error) {
	r := &Registry{
		specs:  make([]Spec, 0, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if err := checkSpec(s); err != nil {
			return nil, err
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", s.Name)
		}
		r.byName[s.Name] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

func checkSpec(s Spec) error {
	if s.Name == "" || s.Executable == "" {
		return fmt.Errorf("tool %q: name and executable are required", s.Name)
	}
	if _, err := ParseCategory(string(s.Category)); err != nil {
		return fmt.Errorf("tool %q: %w", s.Name, err)
	}
	seen := make(map[string]bool, len(s.Args))
	for _, a := range s.Args {
		if a.Name == "" {
			return fmt.Errorf("tool %q: argument with empty name", s.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("tool %q: duplicate argument %q", s.Name, a.Name)
		}
		seen[a.Name] = true
		switch a.Type {
		case TypeString, TypeInt, TypeBool:
		default:
			return fmt.Errorf("tool %q: argument %q has unknown type %q", s.Name, a.Name, a.Type)
		}
	}
	return nil
}

// GetSpec returns the spec registered under name.
func (r *Registry) GetSpec(name string) (Spec, error) {
	i, ok := r.byName[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r.specs[i], nil
}

// Specs returns all registered specs sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory returns tool names grouped by category, each group sorted.
// Categories without tools are omitted.
func (r *Registry) ByCategory() map[Category][]string {
	out := make(map[Category][]string)
	for _, s := range r.specs {
		out[s.Category] = append(out[s.Category], s.Name)
	}
	for c := range out {
		sort.Strings(out[c])
	}
	return out
}

// Executables returns the distinct executables of all registered tools.
func (r *Registry) Executables() []string {
	seen := make(map[string]bool, len(r.specs))
	var out []string
	for _, s := range r.specs {
		if !seen[s.Executable] {
			seen[s.Executable] = true
			out = append(out, s.Executable)
		}
	}
	sort.Strings(out)
	return out
}

// NormalizeArgs converts supplied arguments into an argv for the tool named
// name. The returned slice excludes the executable but includes any fixed
// subcommand.
func (r *Registry) NormalizeArgs(name string, supplied map[string]string) ([]string, error) {
	spec, err := r.GetSpec(name)
	if err != nil {
		return nil, err
	}
	return normalize(spec, supplied)
}

func normalize(spec Spec, supplied map[string]string) ([]string, error) {
	var unknown []string
	for k := range supplied {
		if _, ok := spec.Arg(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, invalid(spec.Name, "unknown argument: %s", strings.Join(unknown, ", "))
	}

	argv := append([]string(nil), spec.Subcommand...)
	var positional []string
	for _, a := range spec.Args {
		value, ok := supplied[a.Name]
		if !ok || (a.Type != TypeBool && value == "") {
			if a.Required {
				return nil, invalid(spec.Name, "missing required argument: %s", a.Name)
			}
			if a.Default == "" {
				continue
			}
			value = a.Default
		}

		rendered, err := renderValue(spec.Name, a, value)
		if err != nil {
			return nil, err
		}
		switch {
		case a.Type == TypeBool:
			if rendered == "true" {
				argv = append(argv, a.Flag())
			}
		case a.Positional:
			positional = append(positional, rendered)
		default:
			argv = append(argv, a.Flag(), rendered)
		}
	}
	return append(argv, positional...), nil
}

// renderValue type-checks value against a and returns its argv form.
func renderValue(tool string, a ArgSpec, value string) (string, error) {
	switch a.Type {
	case TypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", invalid(tool, "argument %s: expected boolean, got %q", a.Name, value)
		}
		return strconv.FormatBool(b), nil
	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return "", invalid(tool, "argument %s: expected integer, got %q", a.Name, value)
		}
		if n < 0 {
			return "", invalid(tool, "argument %s: must not be negative", a.Name)
		}
		if a.Max > 0 && n > a.Max {
			return "", invalid(tool, "argument %s: exceeds maximum %d", a.Name, a.Max)
		}
		return strconv.Itoa(n), nil
	default:
		if a.Max > 0 && len(value) > a.Max {
			return "", invalid(tool, "argument %s: exceeds maximum length %d", a.Name, a.Max)
		}
		// A bare value that looks like an option would be parsed as one.
		if a.Positional && strings.HasPrefix(value, "-") {
			return "", invalid(tool, "argument %s: must not start with '-'", a.Name)
		}
		return value, nil
	}
}

// Build resolves req into an Invocation. Checks run in order: unknown tool,
// category, arguments, timeout.
func (r *Registry) Build(req Request) (Invocation, error) {
	spec, err := r.GetSpec(req.Name)
	if err != nil {
		return Invocation{}, err
	}
	if strings.TrimSpace(req.Category) == "" {
		return Invocation{}, invalid(spec.Name, "category is required")
	}
	if Category(strings.ToLower(strings.TrimSpace(req.Category))) != spec.Category {
		return Invocation{}, invalid(spec.Name, "category mismatch: tool %s is in category %s, not %s",
			spec.Name, spec.Category, req.Category)
	}

	argv, err := normalize(spec, req.Args)
	if err != nil {
		return Invocation{}, err
	}

	timeout, err := resolveTimeout(spec, req.Timeout)
	if err != nil {
		return Invocation{}, err
	}
	return Invocation{
		Tool:    spec.Name,
		Command: spec.Executable,
		Args:    argv,
		Timeout: timeout,
	}, nil
}

func resolveTimeout(spec Spec, seconds int) (time.Duration, error) {
	if seconds < 0 {
		return 0, invalid(spec.Name, "timeout must not be negative")
	}
	timeout := spec.Timeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	return timeout, nil
}
