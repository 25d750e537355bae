package capture

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/match"
)

func matchesAny(d Device, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	} // end if
	for _, p := range patterns {
		if match.Match(d.Name, p) || match.Match(d.Description, p) {
			return true
		} // end if
	} // end for
	return false
} // end matchesAny()

// EnumerateDevices keeps connected, addressed, non-loopback devices and numbers them from 0.
// Optional glob patterns further restrict the result by name or description.
func EnumerateDevices(p Provider, patterns ...string) ([]Device, error) {
	all, err := p.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	} // end if
	eligible := []Device{}
	for _, d := range all {
		if !d.Eligible() {
			logrus.WithField("device", d.Name).Debug("Skipping device")
			continue
		} // end if
		if !matchesAny(d, patterns) {
			continue
		} // end if
		d.Index = len(eligible)
		eligible = append(eligible, d)
	} // end for
	if len(eligible) == 0 {
		return nil, ErrNoDevices
	} // end if
	return eligible, nil
} // end EnumerateDevices()
