package config

import (
	"os"
	"sync"
)

// containerMarkers identify a container runtime. Docker creates /.dockerenv,
// podman creates /run/.containerenv.
var containerMarkers = []string{"/.dockerenv", "/run/.containerenv"}

// inContainer reports whether the process is running inside a container.
// It is a variable so tests can pin the answer; the probe runs once.
var inContainer = sync.OnceValue(func() bool {
	for _, marker := range containerMarkers {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}
	return false
})

// ResolveHostForDocker rewrites loopback datasource hosts to
// host.docker.internal when the engine itself runs in a container. A loopback
// host in the config points at the operator's machine, and inside a container
// that address would resolve to the container instead of the database.
func ResolveHostForDocker(host string) string {
	if host != "localhost" && host != "127.0.0.1" {
		return host
	}
	if !inContainer() {
		return host
	}
	return "host.docker.internal"
}
