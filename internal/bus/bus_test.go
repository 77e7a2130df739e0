package bus

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPidManagerBasics(t *testing.T) {
	pm := &pidManager{path: filepath.Join(t.TempDir(), PidName)}

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(pm.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if string(pidData) != strconv.Itoa(os.Getpid()) {
			t.Errorf("PID file contains %q, expected %d", string(pidData), os.Getpid())
		}

		if err := pm.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := pm.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer pm.remove()

		if err := pm.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	for name, content := range map[string]string{"stale": "999999", "invalid": "invalid"} {
		t.Run("checkExisting with "+name+" PID file", func(t *testing.T) {
			if err := os.WriteFile(pm.path, []byte(content), 0o600); err != nil {
				t.Fatalf("failed to write PID file: %v", err)
			}
			if err := pm.checkExisting(); err != nil {
				t.Errorf("checkExisting should succeed: %v", err)
			}
			if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
				t.Error("PID file should be removed")
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(999999) {
		t.Error("non-existent process should not be alive")
	}
	if pm.isProcessAlive(0) {
		t.Error("pid 0 should not be alive")
	}
}

// serve answers each connection with reply(cmd) until the listener closes.
func serve(t *testing.T, sm *socketManager, reply func(cmd byte) string) {
	t.Helper()
	ln, err := sm.listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 2)
				if n, err := c.Read(buf); err != nil || n != 2 {
					return
				}
				fmt.Fprint(c, reply(buf[0]))
			}(conn)
		}
	}()
}

func TestSocketManagerSend(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}

	serve(t, sm, func(cmd byte) string {
		switch cmd {
		case CmdToggle:
			return "OK toggled status=connecting\n"
		case CmdStop:
			return "OK stopped\n"
		case CmdStatus:
			return "STATUS status=idle\n"
		case CmdTranscript:
			return "TRANSCRIPT []\n"
		case CmdVersion:
			return fmt.Sprintf("STATUS proto=%s\n", ProtoVer)
		case CmdQuit:
			return "OK quitting\n"
		default:
			return fmt.Sprintf("ERR unknown=%q\n", cmd)
		}
	})

	tests := []struct {
		cmd  byte
		want string
	}{
		{CmdToggle, "OK toggled status=connecting"},
		{CmdStop, "OK stopped"},
		{CmdStatus, "STATUS status=idle"},
		{CmdTranscript, "TRANSCRIPT []"},
		{CmdVersion, "STATUS proto=" + ProtoVer},
		{CmdQuit, "OK quitting"},
		{'x', "ERR unknown='x'"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			got, err := sm.send(tt.cmd)
			if err != nil {
				t.Fatalf("send failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialWithoutListener(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	if _, err := sm.dial(); err == nil {
		t.Error("dial should fail when no listener exists")
	}
	if _, err := sm.send(CmdStatus); err == nil {
		t.Error("send should fail when no listener exists")
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	if err := os.WriteFile(sm.path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	ln, err := sm.listen()
	if err != nil {
		t.Fatalf("listen over stale socket: %v", err)
	}
	ln.Close()
}

func TestPathFunctions(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	sock, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath failed: %v", err)
	}
	if !filepath.IsAbs(sock) || filepath.Base(sock) != SockName {
		t.Errorf("SockPath = %s", sock)
	}
	if filepath.Base(filepath.Dir(sock)) != "hyprlive" {
		t.Errorf("socket should live under hyprlive/, got %s", sock)
	}

	pid, err := PidPath()
	if err != nil {
		t.Fatalf("PidPath failed: %v", err)
	}
	if filepath.Base(pid) != PidName {
		t.Errorf("PidPath = %s", pid)
	}
}

func TestPublicAPIWithTempDirs(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon should succeed when no daemon running: %v", err)
	}
	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should see this process")
	}
	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 2)
		c.Read(buf)
		fmt.Fprint(c, "STATUS status=connected\n")
	}()

	got, err := SendCommand(CmdStatus)
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got != "STATUS status=connected" {
		t.Errorf("SendCommand = %q", got)
	}
}
