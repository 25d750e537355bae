package syslog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSyslogOptions(t *testing.T) {
	opts, err := ParseSyslogOptions("type=host")
	require.NoError(t, err)
	require.Equal(t, DEFAULT_SYSLOG_FACILITY, opts.FacilityCode)
	require.Equal(t, "local0", opts.Facility)

	opts, err = ParseSyslogOptions("type=remote&uri=tcp://10.0.0.9&facility=19")
	require.NoError(t, err)
	require.Equal(t, "local3", opts.Facility)
	require.Equal(t, uint8(19), opts.FacilityCode)

	opts, err = ParseSyslogOptions("type=host&facility=daemon")
	require.NoError(t, err)
	require.Equal(t, uint8(3), opts.FacilityCode)

	_, err = ParseSyslogOptions("type=host&facility=nonsense")
	require.Error(t, err)
	_, err = ParseSyslogOptions("type=remote&uri=")
	require.Error(t, err)
	_, err = ParseSyslogOptions("type=beat")
	require.Error(t, err)
} // end TestParseSyslogOptions()

func TestParseRemoteSyslogURI(t *testing.T) {
	proto, sock, err := parseRemoteSyslogURI("tcp://10.0.0.9")
	require.NoError(t, err)
	require.Equal(t, "tcp", proto)
	require.Equal(t, "10.0.0.9:514", sock)

	proto, sock, err = parseRemoteSyslogURI("")
	require.NoError(t, err)
	require.Empty(t, proto)
	require.Empty(t, sock)

	proto, sock, err = parseRemoteSyslogURI(DefaultRemoteSyslogOptions().URI)
	require.NoError(t, err)
	require.Equal(t, "udp", proto)
	require.Equal(t, "localhost:514", sock)

	_, _, err = parseRemoteSyslogURI("udp://bad_host!:514")
	require.Error(t, err)

	_, _, err = parseRemoteSyslogURI("http://x")
	require.Error(t, err)
} // end TestParseRemoteSyslogURI()

func TestPriority(t *testing.T) {
	require.Equal(t, 134, toPriority(16, 6))
} // end TestPriority()
