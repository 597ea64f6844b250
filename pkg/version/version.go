package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/dylanmazurek/debridify/pkg/version.Version=..."
var (
	Version = "0.0.0"
	Channel = "dev"
	Commit  = ""
)

type Info struct {
	Version string `json:"version"`
	Channel string `json:"channel"`
	Commit  string `json:"commit,omitempty"`
	Go      string `json:"go"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s-%s", i.Version, i.Channel)
}

func GetInfo() Info {
	return Info{
		Version: Version,
		Channel: Channel,
		Commit:  Commit,
		Go:      runtime.Version(),
	}
}

// UserAgent is sent with every outbound provider request.
func UserAgent() string {
	return fmt.Sprintf("Debridify/%s (%s; %s)", GetInfo(), runtime.GOOS, runtime.GOARCH)
}
