package cmd

import (
	"bytes"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"definitely-not-a-command"})
	defer func() {
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	if err := Execute(); err == nil {
		t.Fatal("unknown command accepted")
	}
}
