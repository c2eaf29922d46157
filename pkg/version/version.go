package version

import "fmt"

// Set at build time with -ldflags "-X github.com/aerae/accelerator/pkg/version.gitVersion=..."
var (
	gitVersion = "unknown"
	gitCommit  = ""
)

type Info struct {
	GitVersion string `json:"gitVersion"`
	GitCommit  string `json:"gitCommit"`
}

func Get() Info {
	return Info{GitVersion: gitVersion, GitCommit: gitCommit}
}

func (i Info) String() string {
	if i.GitCommit == "" {
		return i.GitVersion
	}
	return fmt.Sprintf("%s (%s)", i.GitVersion, i.GitCommit)
}
