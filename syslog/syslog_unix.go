//go:build !windows

package syslog

import (
	"log/syslog"

	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
	lSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// plainHook re-renders entries without ANSI colors before handing them to syslog.
type plainHook struct {
	hook      *lSyslog.SyslogHook
	formatter *logrus.TextFormatter
} // end type

func (that *plainHook) Levels() []logrus.Level {
	return logrus.AllLevels
} // end Levels()

func (that *plainHook) Fire(entry *logrus.Entry) error {
	data, err := that.formatter.Format(entry)
	if err != nil {
		return err
	} // end if
	line := string(data)
	switch entry.Level {
	case logrus.PanicLevel:
		return that.hook.Writer.Emerg(line)
	case logrus.FatalLevel:
		return that.hook.Writer.Crit(line)
	case logrus.ErrorLevel:
		return that.hook.Writer.Err(line)
	case logrus.WarnLevel:
		return that.hook.Writer.Warning(line)
	case logrus.DebugLevel, logrus.TraceLevel:
		return that.hook.Writer.Debug(line)
	} // end switch
	return that.hook.Writer.Info(line)
} // end Fire()

func initSyslog(opts *SyslogOptions, tag string) error {
	proto, sock, err := parseRemoteSyslogURI(opts.URI)
	if err != nil {
		return err
	} // end if
	hook, err := lSyslog.NewSyslogHook(proto, sock, toPriority(syslog.Priority(opts.FacilityCode), syslog.LOG_INFO), tag)
	if err != nil {
		return err
	} // end if
	tf, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	if !ok {
		logrus.AddHook(hook)
		return nil
	} // end if
	plain := logrus.TextFormatter{}
	copier.Copy(&plain, tf)
	plain.DisableColors = true
	logrus.AddHook(&plainHook{hook: hook, formatter: &plain})
	return nil
} // end initSyslog()
