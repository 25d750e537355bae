//go:build windows

package main

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// x64 offsets: PEB.ProcessParameters and RTL_USER_PROCESS_PARAMETERS.CommandLine
const (
	pebProcessParametersOffset = 0x20
	paramsCommandLineOffset    = 0x70
)

type processBasicInformation struct {
	Reserved1       uintptr
	PebBaseAddress  uintptr
	Reserved2       [2]uintptr
	UniqueProcessId uintptr
	Reserved3       uintptr
} // end type

type unicodeString struct {
	Length        uint16
	MaximumLength uint16
	Buffer        uintptr
} // end type

var procNtQueryInformationProcess = syscall.NewLazyDLL("ntdll.dll").NewProc("NtQueryInformationProcess")

// setproctitle overwrites the command line recorded in the PEB, in place.
func setproctitle(title string) error {
	self := windows.CurrentProcess()
	var pbi processBasicInformation
	var n uint32
	status, _, _ := procNtQueryInformationProcess.Call(uintptr(self), 0, uintptr(unsafe.Pointer(&pbi)), unsafe.Sizeof(pbi), uintptr(unsafe.Pointer(&n)))
	if status != 0 {
		return fmt.Errorf("NtQueryInformationProcess failed with status: %x", status)
	} // end if
	var params uintptr
	if err := windows.ReadProcessMemory(self, pbi.PebBaseAddress+pebProcessParametersOffset, (*byte)(unsafe.Pointer(&params)), unsafe.Sizeof(params), nil); err != nil {
		return err
	} // end if
	var cmdLine unicodeString
	cmdLineAddr := params + paramsCommandLineOffset
	if err := windows.ReadProcessMemory(self, cmdLineAddr, (*byte)(unsafe.Pointer(&cmdLine)), unsafe.Sizeof(cmdLine), nil); err != nil {
		return err
	} // end if
	utf16 := windows.StringToUTF16(title)
	size := uint16(len(utf16) * 2)
	if size > cmdLine.MaximumLength {
		return fmt.Errorf("title does not fit the existing command line buffer")
	} // end if
	if err := windows.WriteProcessMemory(self, cmdLine.Buffer, (*byte)(unsafe.Pointer(&utf16[0])), uintptr(size), nil); err != nil {
		return err
	} // end if
	return windows.WriteProcessMemory(self, cmdLineAddr, (*byte)(unsafe.Pointer(&size)), unsafe.Sizeof(size), nil)
} // end setproctitle()
