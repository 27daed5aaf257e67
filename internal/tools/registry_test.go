package tools

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// crackSpec is a small schema exercising every rendering rule.
var crackSpec = Spec{
	Name: "crack", Category: CategoryCrypto, Executable: "hashcat",
	Args: []ArgSpec{
		{Name: "hash-file", Type: TypeString, Required: true},
		{Name: "m", Type: TypeInt, Default: "0", Max: 99999},
		{Name: "potfile_disable", Type: TypeBool},
		{Name: "wordlist", Type: TypeString, Positional: true},
	},
	Timeout: 600 * time.Second,
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistryFrom([]Spec{crackSpec})
	if err != nil {
		t.Fatalf("NewRegistryFrom() error = %v", err)
	}
	return r
}

func TestNormalizeArgs(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name     string
		supplied map[string]string
		want     []string
		wantErr  string
	}{
		{
			name:     "long flag keeps hyphen and default substituted",
			supplied: map[string]string{"hash-file": "h.txt"},
			want:     []string{"--hash-file", "h.txt", "-m", "0"},
		},
		{
			name:     "underscores become hyphens and bool is bare",
			supplied: map[string]string{"hash-file": "h.txt", "m": "1400", "potfile_disable": "true"},
			want:     []string{"--hash-file", "h.txt", "-m", "1400", "--potfile-disable"},
		},
		{
			name:     "false bool renders nothing",
			supplied: map[string]string{"hash-file": "h.txt", "potfile_disable": "false"},
			want:     []string{"--hash-file", "h.txt", "-m", "0"},
		},
		{
			name:     "positional after flags",
			supplied: map[string]string{"wordlist": "rockyou.txt", "hash-file": "h.txt"},
			want:     []string{"--hash-file", "h.txt", "-m", "0", "rockyou.txt"},
		},
		{
			name:     "metacharacters stay literal",
			supplied: map[string]string{"hash-file": "a; rm -rf /"},
			want:     []string{"--hash-file", "a; rm -rf /", "-m", "0"},
		},
		{
			name:     "missing required",
			supplied: map[string]string{},
			wantErr:  "missing required argument: hash-file",
		},
		{
			name:     "empty required counts as missing",
			supplied: map[string]string{"hash-file": ""},
			wantErr:  "missing required argument: hash-file",
		},
		{
			name:     "unknown argument",
			supplied: map[string]string{"hash-file": "h", "output": "x", "force": "1"},
			wantErr:  "unknown argument: force, output",
		},
		{
			name:     "int type",
			supplied: map[string]string{"hash-file": "h", "m": "abc"},
			wantErr:  `argument m: expected integer, got "abc"`,
		},
		{
			name:     "int max",
			supplied: map[string]string{"hash-file": "h", "m": "100000"},
			wantErr:  "argument m: exceeds maximum 99999",
		},
		{
			name:     "negative int",
			supplied: map[string]string{"hash-file": "h", "m": "-1"},
			wantErr:  "argument m: must not be negative",
		},
		{
			name:     "bool type",
			supplied: map[string]string{"hash-file": "h", "potfile_disable": "maybe"},
			wantErr:  `argument potfile_disable: expected boolean, got "maybe"`,
		},
		{
			name:     "positional option injection",
			supplied: map[string]string{"hash-file": "h", "wordlist": "--outfile=/etc/passwd"},
			wantErr:  "argument wordlist: must not start with '-'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.NormalizeArgs("crack", tt.supplied)
			if tt.wantErr != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("NormalizeArgs() error = %v, want *ValidationError", err)
				}
				if ve.Error() != tt.wantErr {
					t.Errorf("error = %q, want %q", ve.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeArgs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeArgs_StringMax(t *testing.T) {
	r, err := NewRegistryFrom([]Spec{{
		Name: "echoer", Category: CategorySystem, Executable: "echo",
		Args: []ArgSpec{{Name: "msg", Type: TypeString, Max: 5, Positional: true}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.NormalizeArgs("echoer", map[string]string{"msg": "123456"}); err == nil {
		t.Error("expected length error")
	}
	got, err := r.NormalizeArgs("echoer", map[string]string{"msg": "12345"})
	if err != nil || !reflect.DeepEqual(got, []string{"12345"}) {
		t.Errorf("NormalizeArgs() = %q, %v", got, err)
	}
}

func TestNormalizeArgs_UnknownTool(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.NormalizeArgs("nope", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestBuild_CategoryMismatchBeforeArgs(t *testing.T) {
	r := NewRegistry()

	// sqlmap is a security tool; asking for it as network fails even
	// though the required argument is also missing.
	_, err := r.Build(Request{Name: "sqlmap", Category: "network"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Build() error = %v, want *ValidationError", err)
	}
	if !strings.Contains(ve.Reason, "category mismatch") {
		t.Errorf("Reason = %q, want category mismatch", ve.Reason)
	}

	_, err = r.Build(Request{Name: "sqlmap"})
	if err == nil || err.Error() != "category is required" {
		t.Errorf("Build() without category error = %v", err)
	}
}

func TestBuild_Sqlmap(t *testing.T) {
	r := NewRegistry()
	inv, err := r.Build(Request{
		Name:     "sqlmap",
		Category: "Security",
		Args:     Args{"u": "http://target/?id=1", "level": "2"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if inv.Command != "sqlmap" || inv.Tool != "sqlmap" {
		t.Errorf("Invocation = %+v", inv)
	}
	want := []string{"-u", "http://target/?id=1", "--batch", "--level", "2"}
	if !reflect.DeepEqual(inv.Args, want) {
		t.Errorf("Args = %q, want %q", inv.Args, want)
	}
	if inv.Timeout != 300*time.Second {
		t.Errorf("Timeout = %v, want 300s", inv.Timeout)
	}
}

func TestBuild_Timeout(t *testing.T) {
	r := newTestRegistry(t)
	base := Request{Name: "crack", Category: "crypto", Args: Args{"hash-file": "h"}}

	tests := []struct {
		name    string
		timeout int
		want    time.Duration
		wantErr bool
	}{
		{"tool timeout capped", 0, MaxTimeout, false},
		{"request timeout wins", 7, 7 * time.Second, false},
		{"request timeout capped", 1000, MaxTimeout, false},
		{"negative", -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Timeout = tt.timeout
			inv, err := r.Build(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && inv.Timeout != tt.want {
				t.Errorf("Timeout = %v, want %v", inv.Timeout, tt.want)
			}
		})
	}
}

func TestBuild_Subcommand(t *testing.T) {
	r := NewRegistry()
	inv, err := r.Build(Request{Name: "process", Category: "system"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Command != "ps" || !reflect.DeepEqual(inv.Args, []string{"aux"}) {
		t.Errorf("Invocation = %+v", inv)
	}

	inv, err = r.Build(Request{Name: "ollama", Category: "ai", Args: Args{"model": "llama3", "prompt": "hello there"}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(inv.Args, []string{"run", "llama3", "hello there"}) {
		t.Errorf("Args = %q", inv.Args)
	}
}

func TestBuiltinCatalog(t *testing.T) {
	r := NewRegistry()
	byCat := r.ByCategory()
	for _, c := range Categories {
		if len(byCat[c]) == 0 {
			t.Errorf("category %s has no tools", c)
		}
	}
	for i, s := range Builtin() {
		if int(s.ID) != i+1 {
			t.Errorf("builtin[%d].ID = %d, want %d", i, s.ID, i+1)
		}
		if s.ID.String() != s.Name {
			t.Errorf("ToolID(%d).String() = %q, want %q", s.ID, s.ID.String(), s.Name)
		}
	}
	if ToolID(0).String() != "unknown" {
		t.Errorf("ToolID(0).String() = %q", ToolID(0).String())
	}
	spec, err := r.GetSpec("disk")
	if err != nil || spec.Executable != "df" {
		t.Errorf("GetSpec(disk) = %+v, %v", spec, err)
	}
	if got := r.Executables(); len(got) != len(Builtin()) {
		t.Errorf("Executables() = %d entries, want %d", len(got), len(Builtin()))
	}
}

func TestNewRegistryFrom_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
	}{
		{"duplicate tool", []Spec{crackSpec, crackSpec}},
		{"bad category", []Spec{{Name: "x", Category: "misc", Executable: "x"}}},
		{"no executable", []Spec{{Name: "x", Category: CategorySystem}}},
		{"duplicate arg", []Spec{{Name: "x", Category: CategorySystem, Executable: "x",
			Args: []ArgSpec{{Name: "a", Type: TypeInt}, {Name: "a", Type: TypeInt}}}}},
		{"bad type", []Spec{{Name: "x", Category: CategorySystem, Executable: "x",
			Args: []ArgSpec{{Name: "a", Type: "float"}}}}},
	}
	for _, tt := range tests {
		if _, err := NewRegistryFrom(tt.specs); err == nil {
			t.Errorf("%s: NewRegistryFrom() = nil error", tt.name)
		}
	}
}

func TestArgs_UnmarshalJSON(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"category":"network","args":{"target":"example.com","c":3,"open":true}}`), &req)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := Args{"target": "example.com", "c": "3", "open": "true"}
	if !reflect.DeepEqual(req.Args, want) {
		t.Errorf("Args = %v, want %v", req.Args, want)
	}

	if err := json.Unmarshal([]byte(`{"args":{"target":["a","b"]}}`), &req); err == nil {
		t.Error("expected error for array value")
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(" Network "); err != nil || c != CategoryNetwork {
		t.Errorf("ParseCategory() = %q, %v", c, err)
	}
	if _, err := ParseCategory("misc"); err == nil {
		t.Error("ParseCategory(misc) should fail")
	}
}
