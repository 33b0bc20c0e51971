package main

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"serve", "version"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("config flag not registered")
	}
	if flag.DefValue != "" {
		t.Errorf("config flag default = %q, want empty (resolved at load time)", flag.DefValue)
	}
}
