package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// graceful-stop window before SIGKILL
const stopGracePeriod = 10 * time.Second

// PIDManager tracks the running node's process id so `start` can refuse a
// second instance and `stop` can find the one to signal.
type PIDManager struct {
	dir string
	cm  *ConfigManager
}

func NewPIDManager(cm *ConfigManager) (*PIDManager, error) {
	dir := cm.GetConfigWithDefault("data_dir", GetAppPaths("").DataDir)
	if dir == "" {
		dir = "."
	}
	return &PIDManager{dir: dir, cm: cm}, nil
}

func (p *PIDManager) pidFilePath() string {
	name := p.cm.GetConfigWithDefault("pid_path", "design-node.pid")
	return filepath.Join(p.dir, filepath.FromSlash(name))
}

func (p *PIDManager) WritePID(pid int) error {
	path := p.pidFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for PID file: %v", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644)
}

func (p *PIDManager) ReadPID() (int, error) {
	data, err := os.ReadFile(p.pidFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("PID file does not exist - node is not running")
		}
		return 0, fmt.Errorf("failed to read PID file: %v", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID format in file: %v", err)
	}
	return pid, nil
}

// StopProcess sends SIGTERM and escalates to SIGKILL after the grace
// period. A running design job gets the chance to finish writing its
// artifacts before the process dies.
func (p *PIDManager) StopProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}

	if runtime.GOOS == "windows" {
		return process.Kill()
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %v", pid, err)
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(stopGracePeriod)

	for {
		select {
		case <-deadline:
			fmt.Printf("Grace period expired, force killing process %d\n", pid)
			return process.Signal(syscall.SIGKILL)
		case <-ticker.C:
			// signal 0 only probes for existence
			if err := process.Signal(syscall.Signal(0)); err != nil {
				fmt.Printf("Process %d terminated gracefully\n", pid)
				return nil
			}
		}
	}
}

func (p *PIDManager) RemovePIDFile() error {
	if err := os.Remove(p.pidFilePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %v", err)
	}
	return nil
}

func (p *PIDManager) IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return process.Signal(syscall.Signal(0)) == nil
}
