package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Set at build time via -ldflags.
var (
	BinaryVersion = "dev"
	GitCommit     = ""
	BuildDate     = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Source    string `json:"source"`
	GitCommit string `json:"gitCommit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// ModuleVersion returns the module version embedded by the Go toolchain (when available).
func ModuleVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return ""
}

// Current reports the version, preferring the ldflags value over the module
// version recorded by `go install`.
func Current() Info {
	info := Info{
		Version:   BinaryVersion,
		Source:    "ldflags",
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if BinaryVersion == "dev" {
		if mv := ModuleVersion(); mv != "" && mv != "(devel)" {
			info.Version = mv
			info.Source = "module"
		} else {
			info.Source = "default"
		}
	}
	if len(info.GitCommit) > 8 {
		info.GitCommit = info.GitCommit[:8]
	}
	return info
}
