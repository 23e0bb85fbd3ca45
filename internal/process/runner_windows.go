//go:build windows

package process

import (
	"os/exec"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows has no process-group signal equivalent to SIGKILL on a negative
// PID; a job object is the documented way to make "kill this and everything
// it spawned" work (compile drivers routinely fork helper passes). Each
// running cmd gets its own job, tracked by PID since exec.Cmd carries no spare
// field to hang a handle off.
var (
	jobsMu sync.Mutex
	jobs   = make(map[int]windows.Handle)
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

func joinProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return
	}
	handle, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(cmd.Process.Pid))
	if err != nil {
		windows.CloseHandle(job)
		return
	}
	defer windows.CloseHandle(handle)
	if err := windows.AssignProcessToJobObject(job, handle); err != nil {
		windows.CloseHandle(job)
		return
	}
	jobsMu.Lock()
	jobs[cmd.Process.Pid] = job
	jobsMu.Unlock()
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	jobsMu.Lock()
	job, ok := jobs[cmd.Process.Pid]
	if ok {
		delete(jobs, cmd.Process.Pid)
	}
	jobsMu.Unlock()
	if ok {
		defer windows.CloseHandle(job)
		return windows.TerminateJobObject(job, 1)
	}
	// No job (creation failed earlier): fall back to killing the direct
	// process only.
	return cmd.Process.Kill()
}
