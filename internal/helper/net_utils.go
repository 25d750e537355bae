package helper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

func ParseHostAndPort(s string) (string, int, bool) {
	const addrPattern = `^(?::(?P<port0>\d{0,5})|(?P<host1>(?:\d{1,3}\.){3}\d{1,3})(?::(?P<port1>\d{0,5}))?|\[(?P<host2>[0-9a-fA-F:]+)\](?::(?P<port2>\d{0,5}))?)$`
	re := regexp.MustCompile(addrPattern)
	match := re.FindStringSubmatch(s)
	webHost := ""
	webPort := 0
	bMatched := (match != nil)
	if bMatched {
		for i := 1; i <= 2; i++ {
			idxHost := re.SubexpIndex(fmt.Sprintf("host%d", i))
			if idxHost < 0 || match[idxHost] == "" {
				continue
			} // end if
			webHost = match[idxHost]
			break
		} // end for
		for i := 0; i <= 2; i++ {
			idxPort := re.SubexpIndex(fmt.Sprintf("port%d", i))
			if idxPort < 0 || match[idxPort] == "" {
				continue
			} // end if
			webPort, _ = strconv.Atoi(match[idxPort])
			break
		} // end for
	} // end if
	return webHost, webPort, bMatched
} // end ParseHostAndPort()

func IsValidPort(v int) bool {
	return (0 < v && v <= 65535)
} // end IsValidPort()

type PortRange struct {
	Low  uint16
	High uint16
} // end type

func (r PortRange) Contains(p uint16) bool {
	return r.Low <= p && p <= r.High
} // end Contains()

/*
extracts the UDP port clauses of a capture filter, e.g.

	udp portrange 22101-22102
	udp port 53 or udp portrange 100-200

anything else in the expression is ignored
*/
func ParseUDPPortRanges(expr string) ([]PortRange, error) {
	reClause := regexp.MustCompile(`udp\s+(port|portrange)\s+(\d+)(?:-(\d+))?`)
	ranges := []PortRange{}
	for _, m := range reClause.FindAllStringSubmatch(strings.ToLower(expr), -1) {
		low, errLow := strconv.Atoi(m[2])
		if errLow != nil || !IsValidPort(low) {
			return nil, fmt.Errorf("invalid port ‘%s’ in filter ‘%s’", m[2], expr)
		} // end if
		high := low
		if m[1] == "portrange" {
			if m[3] == "" {
				return nil, fmt.Errorf("missing upper bound in filter ‘%s’", expr)
			} // end if
			var errHigh error
			if high, errHigh = strconv.Atoi(m[3]); errHigh != nil || !IsValidPort(high) || high < low {
				return nil, fmt.Errorf("invalid port range ‘%s-%s’ in filter ‘%s’", m[2], m[3], expr)
			} // end if
		} // end if
		ranges = append(ranges, PortRange{Low: uint16(low), High: uint16(high)})
	} // end for
	return ranges, nil
} // end ParseUDPPortRanges()
