// ccd is the thin cl.exe/clang replacement wrapper (§6 CLI surface, C1
// "the wrapper"): it forwards its argv to ccd-daemon over a unix socket and
// exits with whatever the daemon reports, falling back to a direct local
// compile if the daemon is unreachable.
//
// Grounded on the teacher's cmd/nocc/main.go almost file-for-file: same
// splitCompilerAndArgs/shouldCompileLocally/executeLocally shape, same
// dial-a-unix-socket-then-fall-back-to-local-exec structure. As with nocc
// (invoked as "nocc cl ...args" or symlinked directly as "cl"), the request
// framing is a \b/\0-delimited string format; here it is internal/daemon's
// WriteRequest/ReadResponse, shared by client and daemon since both live in
// the same module rather than across a C++/Go boundary.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"ccdispatch/internal/daemon"
)

const sockPath = "/run/ccd-daemon.sock"

func main() {
	compiler, args := splitCompilerAndArgs(os.Args)
	if shouldCompileLocally(args) {
		executeLocally(compiler, args, "")
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		executeLocally(compiler, args, err.Error())
	}
	defer conn.Close()

	cwd, err := os.Getwd()
	exitOnError(err)

	req := daemon.Request{Cwd: cwd, Compiler: compiler, CmdLine: args}
	if err := daemon.WriteRequest(conn, req); err != nil {
		executeLocally(compiler, args, err.Error())
	}

	resp, err := daemon.ReadResponse(bufio.NewReaderSize(conn, 128*1024))
	if err != nil {
		executeLocally(compiler, args, "couldn't read from socket: "+err.Error())
	}

	os.Stdout.Write(resp.Stdout)
	os.Stderr.Write(resp.Stderr)
	os.Exit(resp.ExitCode)
}

// shouldCompileLocally mirrors the teacher's rule: preprocess-only and
// no-compile invocations (linking, "-") go straight to the real compiler,
// since there is nothing for the daemon's pipeline to cache.
func shouldCompileLocally(args []string) bool {
	return slices.Contains(args, "-") || slices.Contains(args, "-E") || slices.Contains(args, "/E") ||
		(!slices.Contains(args, "-c") && !slices.Contains(args, "/c"))
}

func exitOnError(err error) {
	if err != nil {
		os.Stderr.WriteString("[ccd] " + err.Error() + "\n")
		os.Exit(1)
	}
}

// splitCompilerAndArgs recovers the real compiler name: ccd is invoked either
// as "ccd cl ...args" or symlinked directly as "cl"/"clang".
func splitCompilerAndArgs(args []string) (compiler string, arguments []string) {
	compiler = filepath.Base(args[0])
	if compiler == "ccd" {
		compiler = filepath.Base(args[1])
		return compiler, args[2:]
	}
	return compiler, args[1:]
}

func resolveCompiler(compiler string) (string, error) {
	self, _ := os.Executable()
	for _, dir := range strings.Split(os.Getenv("PATH"), string(os.PathListSeparator)) {
		candidate := filepath.Join(dir, compiler)
		real, err := filepath.EvalSymlinks(candidate)
		if err != nil || real == self {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("compiler %q not found in PATH", compiler)
}

// executeLocally runs the real compiler directly and never returns.
func executeLocally(compiler string, args []string, reason string) {
	if reason != "" {
		os.Stderr.WriteString("[ccd] " + reason + "\n")
	}

	path, err := resolveCompiler(compiler)
	exitOnError(err)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	os.Stdout.Write(stdout.Bytes())
	os.Stderr.Write(stderr.Bytes())
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		exitOnError(runErr)
	}
	os.Exit(0)
}
