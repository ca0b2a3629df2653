package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// ResolveCompanion finds the executable name that ships beside primary, as
// ffprobe does beside a custom ffmpeg build. It prefers the sibling file and
// falls back to resolving name from PATH.
func ResolveCompanion(primary, name string) Status {
	result := Status{Name: name}

	if binary := strings.TrimSpace(primary); binary != "" {
		if resolved, err := exec.LookPath(binary); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName(name))
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		result.Command = path
		result.Available = true
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

// Version returns the first line of `<binary> -version`, or "" when the
// binary cannot be run.
func Version(ctx context.Context, binary string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := commandContext(ctx, binary, "-version").Output() //nolint:gosec
	if err != nil {
		return ""
	}
	line, _, _ := bufio.NewReader(bytes.NewReader(out)).ReadLine()
	return strings.TrimSpace(string(line))
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// FFprobeFor returns ffprobe unless it is the bare default name and a
// companion ffprobe sits beside ffmpeg.
func FFprobeFor(ffmpeg, ffprobe string) string {
	if ffprobe != "" && ffprobe != "ffprobe" {
		return ffprobe
	}
	if companion := ResolveCompanion(ffmpeg, "ffprobe"); companion.Available {
		return companion.Command
	}
	return "ffprobe"
}
