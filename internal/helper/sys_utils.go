package helper

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

func SysStartTime() (time.Time, error) {
	p, errP := process.NewProcess(int32(os.Getpid()))
	if errP != nil {
		return time.Time{}, errP
	} // end if
	createTime, errCtime := p.CreateTime()
	if errCtime != nil {
		return time.Time{}, errCtime
	} // end if
	return time.UnixMilli(createTime), nil
} // end SysStartTime()

func SysUpTime() (time.Duration, error) {
	start, err := SysStartTime()
	if err != nil {
		return 0, err
	} // end if
	return time.Since(start), nil
} // end SysUpTime()
