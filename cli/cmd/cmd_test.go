package cmd

import (
	"strings"
	"testing"

	"github.com/relayroom/relayroom/cli/internal/config"
)

func TestCommandsRegistered(t *testing.T) {
	cfg = config.Default()

	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}

	expected := map[string]bool{
		"login":     false,
		"logout":    false,
		"publisher": false,
		"health":    false,
	}

	for _, cmd := range rootCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expected[name]; ok {
			expected[name] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("expected command '%s' to be registered with root command", name)
		}
	}
}

func TestPublisherSubcommands(t *testing.T) {
	expected := map[string]bool{
		"status": false,
		"switch": false,
		"clear":  false,
	}

	for _, cmd := range publisherCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := expected[name]; ok {
			expected[name] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("expected publisher subcommand '%s' to be registered", name)
		}
	}
}

func TestRootCommandMetadata(t *testing.T) {
	if rootCmd.Use != "relayctl" {
		t.Errorf("expected root command use 'relayctl', got %q", rootCmd.Use)
	}
	if rootCmd.Version == "" {
		t.Error("root command should have a version")
	}
}
