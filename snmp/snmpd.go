// Package snmp serves exporter status over a read-only SNMP agent laid out after the APACHE2-MIB.
package snmp

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/sam80180/stardb-exporter/internal/helper"
	"github.com/sirupsen/logrus"
	"github.com/slayercat/GoSNMPServer"
)

const (
	APACHE2_MIB_OID_PREFIX         string = "1.3.6.1.4.1.19786.1.1"
	SNMPD_DEFAULT_PORT             int    = 161
	SNMPD_DEFAULT_COMMUNITY        string = "public"
	SNMPD_DEFAULT_REFRESH_INTERVAL string = "30s"
)

func serverOIDs(version string) []*GoSNMPServer.PDUValueControlItem {
	return []*GoSNMPServer.PDUValueControlItem{
		{
			Document: "serverVersion",
			OID:      fmt.Sprintf("%s.1.2.0", APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				return version, nil
			},
			Type: gosnmp.OctetString,
		},
		{
			Document: "serverRestart",
			OID:      fmt.Sprintf("%s.1.4.0", APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				start, errStart := helper.SysStartTime()
				if errStart != nil {
					return "N/A", errStart
				} // end if
				return start.Format(time.RFC3339), nil
			},
			Type: gosnmp.OctetString,
		},
		{
			Document: "serverStatus",
			OID:      fmt.Sprintf("%s.2.5.0", APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				return 1, nil
			},
			Type: gosnmp.Integer,
		},
		{
			Document: "serverUptime",
			OID:      fmt.Sprintf("%s.2.6.0", APACHE2_MIB_OID_PREFIX),
			OnGet: func() (value any, err error) {
				t, e := helper.SysUpTime()
				return t.Truncate(time.Second).String(), e
			},
			Type: gosnmp.OctetString,
		},
	}
} // end serverOIDs()

func NewSubAgent(community, version string, extraOIDs []*GoSNMPServer.PDUValueControlItem) *GoSNMPServer.SubAgent {
	if community == "" {
		community = SNMPD_DEFAULT_COMMUNITY
	} // end if
	return &GoSNMPServer.SubAgent{
		CommunityIDs: []string{community},
		OIDs:         append(serverOIDs(version), extraOIDs...),
	}
} // end NewSubAgent()

// Serve answers SNMP requests on addr until ctx is done.
func Serve(ctx context.Context, addr, community, version string, extraOIDs []*GoSNMPServer.PDUValueControlItem) error {
	master := GoSNMPServer.MasterAgent{
		Logger:    logrus.StandardLogger(),
		SubAgents: []*GoSNMPServer.SubAgent{NewSubAgent(community, version, extraOIDs)},
	}
	server := GoSNMPServer.NewSNMPServer(master)
	if err := server.ListenUDP("udp", addr); err != nil {
		return fmt.Errorf("snmpd failed to listen on %s: %w", addr, err)
	} // end if
	go (func() {
		<-ctx.Done()
		server.Shutdown()
	})()
	logrus.WithField("type", "snmp").Infof("Metrics exporter listening at %s", addr)
	if err := server.ServeForever(); err != nil && ctx.Err() == nil {
		return err
	} // end if
	return nil
} // end Serve()
