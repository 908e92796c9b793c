package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	for _, name := range []string{"play", "live", "summary", "detect", "diagnose", "validate", "version"} {
		if !isBuiltinCommand(root, name) {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestIsBuiltinCommand(t *testing.T) {
	root := NewRootCommand()

	tests := []struct {
		name string
		want bool
	}{
		{"play", true},
		{"help", true},
		{"completion", true},
		{"record", false},
		{"analyze", false},
	}
	for _, tt := range tests {
		if got := isBuiltinCommand(root, tt.name); got != tt.want {
			t.Errorf("isBuiltinCommand(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, want := range []string{"gnsstage-render-<name>", "~/.gnsstage/plugins/", "live"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestPluginCandidate(t *testing.T) {
	root := NewRootCommand()

	tests := []struct {
		args []string
		want string
		ok   bool
	}{
		{nil, "", false},
		{[]string{"-v"}, "", false},
		{[]string{""}, "", false},
		{[]string{"play", "track.ubx"}, "", false},
		{[]string{"record", "--port", "/dev/ttyACM0"}, "record", true},
	}
	for _, tt := range tests {
		got, ok := pluginCandidate(root, tt.args)
		if got != tt.want || ok != tt.ok {
			t.Errorf("pluginCandidate(%q) = %q, %v, want %q, %v", tt.args, got, ok, tt.want, tt.ok)
		}
	}
}
