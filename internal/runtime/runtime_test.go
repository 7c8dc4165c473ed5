package runtime

import (
	goruntime "runtime"
	"testing"
)

func TestShellCommandWrapsScript(t *testing.T) {
	cmd := ShellCommand("npm run build && node dist/server.js")
	if len(cmd) != 3 {
		t.Fatalf("expected interpreter, flag and script, got %v", cmd)
	}
	if goruntime.GOOS == "windows" {
		if cmd[0] != "cmd" || cmd[1] != "/c" {
			t.Fatalf("unexpected interpreter %v", cmd[:2])
		}
	} else {
		if cmd[0] != "/bin/sh" || cmd[1] != "-c" {
			t.Fatalf("unexpected interpreter %v", cmd[:2])
		}
	}
	if cmd[2] != "npm run build && node dist/server.js" {
		t.Fatalf("script was altered: %q", cmd[2])
	}
}
