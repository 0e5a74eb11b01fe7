package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "stash dev") {
		t.Errorf("expected output to contain 'stash dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "stash 1.0.0") {
		t.Errorf("expected output to contain 'stash 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"db", "yarn", "project", "pattern", "folder", "dashboard", "serve", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, out)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"yarn", "list", "--help"}, []string{"--sort", "brand, available, weight, newest", "--config"}},
		{[]string{"yarn", "adjust", "--help"}, []string{"overcommitted"}},
		{[]string{"project", "alloc", "--help"}, []string{"<project> <yarn> <skeins>", "rejected"}},
		{[]string{"folder", "delete", "--help"}, []string{"not moved to the unfiled list"}},
		{[]string{"db", "reset", "--help"}, []string{"--yes"}},
		{[]string{"serve", "--help"}, []string{"--port", "/metrics"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			cmd := newRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			if err := cmd.Execute(); err != nil {
				t.Fatalf("help failed: %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected help to contain %q, got: %s", w, out)
				}
			}
		})
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"dashboard", "--config", "/nonexistent/stash.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestServeCmd_DefaultPort(t *testing.T) {
	cmd := newServeCmd()
	flag := cmd.Flags().Lookup("port")
	if flag == nil {
		t.Fatal("--port flag not found")
	}
	if flag.DefValue != "0" {
		t.Errorf("default port = %q, want %q", flag.DefValue, "0")
	}
}

func TestExecute_ReturnsOneOnError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"yarn", "show"})

	if code := execute(cmd); code != 1 {
		t.Errorf("execute() = %d, want 1", code)
	}
}
