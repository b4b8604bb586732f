package netgate

import (
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

// CommandProbe resolves the joined WiFi SSID by invoking the platform's
// wireless tooling: `netsh wlan show interfaces` on Windows, `iwgetid -r`
// elsewhere.
type CommandProbe struct{}

// NewCommandProbe returns the platform command probe.
func NewCommandProbe() *CommandProbe {
	return &CommandProbe{}
}

// CurrentNetworkName runs the platform command and extracts the SSID.
// An empty string means the name could not be determined.
func (p *CommandProbe) CurrentNetworkName(ctx context.Context) (string, error) {
	if runtime.GOOS == "windows" {
		out, err := exec.CommandContext(ctx, "netsh", "wlan", "show", "interfaces").Output()
		if err != nil {
			return "", err
		}
		return parseNetshSSID(string(out)), nil
	}

	out, err := exec.CommandContext(ctx, "iwgetid", "-r").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

var netshSSIDPattern = regexp.MustCompile(`(?i)^SSID\s*:`)

// parseNetshSSID pulls the SSID line out of netsh output, skipping BSSID
// lines which share the suffix.
func parseNetshSSID(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !netshSSIDPattern.MatchString(line) || strings.Contains(strings.ToLower(line), "bssid") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		ssid := strings.TrimSpace(parts[1])
		if ssid != "" && !strings.EqualFold(ssid, "ssid") {
			return ssid
		}
	}
	return ""
}

// StaticProbe always reports a fixed name. Used in tests and for
// deployments where the network is asserted out of band.
type StaticProbe struct {
	Name string
}

// CurrentNetworkName returns the fixed name.
func (p *StaticProbe) CurrentNetworkName(context.Context) (string, error) {
	return p.Name, nil
}
