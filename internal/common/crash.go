package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// CrashContext is the run description written at the top of a crash report
type CrashContext struct {
	Command        string
	ConfigFiles    []string
	Site           string
	SessionBackend string
	TargetsPath    string
	OutputDir      string
}

// NewCrashContext captures the parts of config that identify a run
func NewCrashContext(command string, configFiles []string, config *Config) CrashContext {
	return CrashContext{
		Command:        command,
		ConfigFiles:    configFiles,
		Site:           config.SiteIdentity(),
		SessionBackend: config.Session.Backend,
		TargetsPath:    config.Targets.Path,
		OutputDir:      config.Output.Dir,
	}
}

var (
	crashMu   sync.Mutex
	crashDir  = "./logs"
	crashInfo CrashContext
)

// InstallCrashHandler sets where RecoverWithCrashFile writes its report and
// which run the report describes. An empty dir keeps ./logs.
func InstallCrashHandler(dir string, info CrashContext) {
	crashMu.Lock()
	defer crashMu.Unlock()

	if dir != "" {
		crashDir = dir
	}
	crashInfo = info
}

// RecoverWithCrashFile writes a crash report for a panic and exits.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	r := recover()
	if r == nil {
		return
	}

	crashMu.Lock()
	dir, info := crashDir, crashInfo
	crashMu.Unlock()

	path, err := writeCrashReport(dir, info, r, debug.Stack(), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "folio crashed: %v\nfailed to write crash report: %v\n%s", r, err, debug.Stack())
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "folio crashed: %v\ncrash report: %s\n", r, path)
	os.Exit(2)
}

func writeCrashReport(dir string, info CrashContext, panicVal interface{}, stack []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crash directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "folio crash report\n")
	fmt.Fprintf(&b, "time:            %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "version:         %s\n", GetFullVersion())
	fmt.Fprintf(&b, "go:              %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "command:         %s\n", info.Command)
	fmt.Fprintf(&b, "config files:    %s\n", strings.Join(info.ConfigFiles, ", "))
	fmt.Fprintf(&b, "site:            %s\n", info.Site)
	fmt.Fprintf(&b, "session backend: %s\n", info.SessionBackend)
	fmt.Fprintf(&b, "targets:         %s\n", info.TargetsPath)
	fmt.Fprintf(&b, "output dir:      %s\n", info.OutputDir)
	fmt.Fprintf(&b, "\npanic: %v\n\n%s", panicVal, stack)

	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write crash report: %w", err)
	}
	return path, nil
}
