//go:build windows

package syslog

import (
	"crypto/tls"

	"github.com/RackSec/srslog"
	"github.com/freman/eventloghook"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/svc/eventlog"
)

type srslogHook struct {
	w *srslog.Writer
} // end type

func newSrslogHook(proto, raddr, tag string, priority srslog.Priority, tlsCfg *tls.Config) (*srslogHook, error) {
	var w *srslog.Writer
	var err error
	if proto == "tcp" && tlsCfg != nil {
		w, err = srslog.DialWithTLSConfig(proto, raddr, priority, tag, tlsCfg)
	} else {
		w, err = srslog.Dial(proto, raddr, priority, tag)
	} // end if
	if err != nil {
		return nil, err
	} // end if
	w.SetFormatter(srslog.RFC5424Formatter)
	return &srslogHook{w: w}, nil
} // end newSrslogHook()

func (that *srslogHook) Levels() []logrus.Level { return logrus.AllLevels }

func (that *srslogHook) Fire(e *logrus.Entry) error {
	line, _ := e.String()
	switch e.Level {
	case logrus.PanicLevel:
		return that.w.Emerg(line)
	case logrus.FatalLevel:
		return that.w.Crit(line)
	case logrus.ErrorLevel:
		return that.w.Err(line)
	case logrus.WarnLevel:
		return that.w.Warning(line)
	case logrus.DebugLevel, logrus.TraceLevel:
		return that.w.Debug(line)
	} // end switch
	return that.w.Info(line)
} // end Fire()

// host syslog on windows is the event log
func initSyslog(opts *SyslogOptions, tag string) error {
	if opts.Type == "host" {
		elog, err := eventlog.Open(tag)
		if err != nil {
			return err
		} // end if
		logrus.AddHook(eventloghook.NewHook(elog))
		return nil
	} // end if
	proto, sock, err := parseRemoteSyslogURI(opts.URI)
	if err != nil {
		return err
	} // end if
	hook, err := newSrslogHook(proto, sock, tag, toPriority(srslog.Priority(opts.FacilityCode), srslog.LOG_INFO), nil)
	if err != nil {
		return err
	} // end if
	logrus.AddHook(hook)
	return nil
} // end initSyslog()
