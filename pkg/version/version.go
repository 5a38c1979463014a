package version

import "runtime"

// Set at build time, e.g.
// go build -ldflags "-X github.com/VeltarosLabs/powledger/pkg/version.Version=0.2.0 -X github.com/VeltarosLabs/powledger/pkg/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "0.1.0"
	Commit  = "dev"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return "powledger " + i.Version + " (" + i.Commit + ", " + i.GoVersion + ", " + i.Platform + ")"
}
