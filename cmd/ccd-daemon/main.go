// ccd-daemon is the long-running process hosting the artifact cache,
// toolchain registry and orchestrator across ccd invocations (§6 CLI
// surface). Grounded on the teacher's cmd/nocc-daemon/main.go: same
// flag/env-combined configuration (common.CmdEnv*), same "start" subcommand
// convention (a parent process expects either an error on stdout or nothing
// before the daemon takes over the socket), same sdaemon.SdNotify use on
// shutdown.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"ccdispatch/internal/cache"
	"ccdispatch/internal/common"
	"ccdispatch/internal/daemon"

	sdaemon "github.com/coreos/go-systemd/v22/daemon"
)

func failedStart(err any) {
	fmt.Println("daemon not started:", err)
	os.Exit(1)
}

func main() {
	sockPath := common.CmdEnvString("Unix socket path ccd wrapper invocations connect to.", "/run/ccd-daemon.sock",
		"sock", "CCD_SOCK_PATH")
	cacheDir := common.CmdEnvString("Artifact cache root directory.", "/var/tmp/ccd/cache",
		"cache-dir", "CCD_CACHE_DIR")
	logFileName := common.CmdEnvString("A filename to log, stderr by default.\nErrors are duplicated to stderr always.", "stderr",
		"log-filename", "CCD_LOG_FILENAME")
	logVerbosity := common.CmdEnvInt("Logger verbosity level for INFO (-1 off, default 0, max 2).\nErrors are logged always.", 0,
		"log-verbosity", "CCD_LOG_VERBOSITY")
	idleTimeoutSec := common.CmdEnvInt("Seconds of no active connections before the daemon quits.", 15,
		"idle-timeout", "CCD_IDLE_TIMEOUT")
	workers := common.CmdEnvInt("Worker pool size per invocation.\nBy default, it's a number of CPUs on the current machine.", int64(runtime.NumCPU()),
		"workers", "CCD_WORKERS")

	common.ParseCmdFlagsCombiningWithEnv()

	if len(os.Args) == 2 && os.Args[1] == "start" {
		logger, err := common.MakeLogger(*logFileName, int(*logVerbosity))
		if err != nil {
			failedStart(err)
		}

		c, err := cache.Open(*cacheDir)
		if err != nil {
			failedStart(err)
		}

		d := daemon.MakeDaemon(daemon.Config{
			SockPath:    *sockPath,
			IdleTimeout: time.Duration(*idleTimeoutSec) * time.Second,
			Workers:     int(*workers),
			Logger:      logger,
		}, c)

		if err := d.Listen(*sockPath); err != nil {
			failedStart(err)
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			<-sigCh
			d.QuitGracefully("received termination signal")
		}()

		_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyReady)
		d.Serve()
		_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyStopping)
		return
	}
}
