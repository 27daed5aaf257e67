package cmd

import (
	"strings"
	"testing"
)

func TestTools_List(t *testing.T) {
	testEnv(t)
	out, err := runCLI(t, "tools")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "ping", "network", "searchsploit", "exploitation"} {
		if !strings.Contains(out, want) {
			t.Errorf("tools output missing %q:\n%s", want, out)
		}
	}
}

func TestTools_Category(t *testing.T) {
	testEnv(t)
	out, err := runCLI(t, "tools", "--category", "SYSTEM")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "uptime") || strings.Contains(out, "ping") {
		t.Errorf("category filter not applied:\n%s", out)
	}

	if _, err := runCLI(t, "tools", "--category", "toys"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestTools_Show(t *testing.T) {
	testEnv(t)
	out, err := runCLI(t, "tools", "show", "ping")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ping (network)", "target", "positional,required", "-c", "max=20"} {
		if !strings.Contains(out, want) {
			t.Errorf("tools show missing %q:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "tools", "show", "nope"); err == nil {
		t.Error("expected error for unknown tool")
	}
}
