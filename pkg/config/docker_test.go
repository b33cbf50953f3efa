package config

import "testing"

func stubContainerProbe(t *testing.T, value bool) {
	t.Helper()
	orig := inContainer
	inContainer = func() bool { return value }
	t.Cleanup(func() { inContainer = orig })
}

func TestResolveHostForDocker_InContainer(t *testing.T) {
	stubContainerProbe(t, true)

	tests := []struct {
		host string
		want string
	}{
		{"localhost", "host.docker.internal"},
		{"127.0.0.1", "host.docker.internal"},
		{"db.internal.example.com", "db.internal.example.com"},
		{"192.168.1.100", "192.168.1.100"},
		{"host.docker.internal", "host.docker.internal"},
	}

	for _, tt := range tests {
		if got := ResolveHostForDocker(tt.host); got != tt.want {
			t.Errorf("ResolveHostForDocker(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestResolveHostForDocker_OutsideContainer(t *testing.T) {
	stubContainerProbe(t, false)

	for _, host := range []string{"localhost", "127.0.0.1", "db.example.com"} {
		if got := ResolveHostForDocker(host); got != host {
			t.Errorf("ResolveHostForDocker(%q) = %q, want the host unchanged", host, got)
		}
	}
}
