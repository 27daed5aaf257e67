package pathutil

import (
	"errors"
	"testing"
)

func withHome(t *testing.T, home string, err error) {
	t.Helper()
	prev := userHomeDir
	userHomeDir = func() (string, error) { return home, err }
	t.Cleanup(func() { userHomeDir = prev })
}

func TestExpandHome(t *testing.T) {
	withHome(t, "/home/op", nil)
	tests := []struct {
		in, want string
	}{
		{"~", "/home/op"},
		{"~/", "/home/op"},
		{"~/.config/cmdgate/users.yaml", "/home/op/.config/cmdgate/users.yaml"},
		{"~other/x", "~other/x"},
		{"/var/log/cmdgate.log", "/var/log/cmdgate.log"},
		{"rel/~/x", "rel/~/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandHome_NoHome(t *testing.T) {
	withHome(t, "", errors.New("no home"))
	if got := ExpandHome("~/x"); got != "~/x" {
		t.Errorf("ExpandHome() = %q, want unchanged", got)
	}
}

func TestShortenHome(t *testing.T) {
	withHome(t, "/home/op", nil)
	tests := []struct {
		in, want string
	}{
		{"/home/op", "~"},
		{"/home/op/.config/cmdgate/config.yaml", "~/.config/cmdgate/config.yaml"},
		{"/home/operator/x", "/home/operator/x"},
		{"/etc/cmdgate.yaml", "/etc/cmdgate.yaml"},
	}
	for _, tt := range tests {
		if got := ShortenHome(tt.in); got != tt.want {
			t.Errorf("ShortenHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if tt.want != tt.in {
			if back := ExpandHome(tt.want); back != tt.in {
				t.Errorf("ExpandHome(ShortenHome(%q)) = %q", tt.in, back)
			}
		}
	}
}
