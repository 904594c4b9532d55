//go:build unix

package main

import (
	"bufio"
	"errors"
	"net"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/flitsinc/devserve/internal/config"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("DEVSERVE_HELPER_PROCESS") != "1" {
		return
	}
	main()
	os.Exit(0)
}

func helperCommand(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
	cmd.Env = append(os.Environ(),
		"DEVSERVE_HELPER_PROCESS=1",
		"DEVSERVE_NO_BROWSER=1",
		"DEVSERVE_QUIET=1",
		"DEVSERVE_JOURNAL_PATH="+config.MemoryJournal,
	)
	return cmd
}

func TestExitsNonZeroWhenPortTaken(t *testing.T) {
	// Either we hold the port or something else already does.
	if ln, err := net.Listen("tcp", config.DefaultAddr); err == nil {
		defer ln.Close()
	}

	cmd := helperCommand(t)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected non-zero exit, got %v\n%s", err, out)
	}
	if exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code")
	}
	if !strings.Contains(string(out), "listen "+config.DefaultAddr) {
		t.Fatalf("expected bind error message, got:\n%s", out)
	}
}

func TestInterruptReleasesPort(t *testing.T) {
	probe, err := net.Listen("tcp", config.DefaultAddr)
	if err != nil {
		t.Skipf("port %s unavailable: %v", config.DefaultAddr, err)
	}
	_ = probe.Close()

	cmd := helperCommand(t)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = cmd.Process.Kill() }()

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(substr string) {
		t.Helper()
		deadline := time.After(10 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("process output ended before %q", substr)
				}
				if strings.Contains(line, substr) {
					return
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %q", substr)
			}
		}
	}

	waitFor("Press Ctrl+C to stop the server")
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("signal: %v", err)
	}
	waitFor("Server stopped!")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("process did not exit after interrupt")
	}

	ln, err := net.Listen("tcp", config.DefaultAddr)
	if err != nil {
		t.Fatalf("expected port released: %v", err)
	}
	_ = ln.Close()
}
