// Package netgate verifies that the scanning device is joined to the
// expected local network before a scan attempt may proceed.
package netgate

import "context"

// Probe reports the name of the network the device is currently joined
// to. Implementations return "" when the name cannot be determined; an
// undetermined network never matches.
type Probe interface {
	CurrentNetworkName(ctx context.Context) (string, error)
}

// Gate compares a probed network name against the configured expectation.
type Gate struct {
	expected string
	probe    Probe
}

// New builds a gate around the given probe.
func New(expected string, probe Probe) *Gate {
	return &Gate{expected: expected, probe: probe}
}

// IsExpectedNetwork reports whether name matches the configured network.
// The empty name never matches, including when no expectation is set.
func (g *Gate) IsExpectedNetwork(name string) bool {
	return name != "" && name == g.expected
}

// Check probes the current network once and evaluates it. Probe failures
// are folded into a non-match rather than surfaced as errors.
func (g *Gate) Check(ctx context.Context) bool {
	if g.probe == nil {
		return false
	}
	name, err := g.probe.CurrentNetworkName(ctx)
	if err != nil {
		return false
	}
	return g.IsExpectedNetwork(name)
}
