// This module provides integration of the flag package with environment variables.
// The purpose is to launch either `ccd-daemon -log-filename fn.log` or
// `CCD_LOG_FILENAME=fn.log ccd-daemon`.
// See usages of CmdEnvString and others.

package common

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type cmdLineArg interface {
	flag.Value
	isFlagSet() bool
	getCmdName() string
	getEnvName() string
	getDescription() string
}

var allCmdLineArgs []cmdLineArg

type cmdLineArgBase struct {
	cmdName string
	envName string
	usage   string
	isSet   bool
}

func (s *cmdLineArgBase) getDescription() string { return s.usage }
func (s *cmdLineArgBase) isFlagSet() bool         { return s.isSet }
func (s *cmdLineArgBase) getCmdName() string      { return s.cmdName }
func (s *cmdLineArgBase) getEnvName() string      { return s.envName }

type cmdLineArgBool struct {
	cmdLineArgBase
	value bool
}

func (s *cmdLineArgBool) String() string { return strconv.FormatBool(s.value) }
func (s *cmdLineArgBool) Set(v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	s.isSet, s.value = true, b
	return nil
}
func (s *cmdLineArgBool) IsBoolFlag() bool { return true }

type cmdLineArgString struct {
	cmdLineArgBase
	value string
}

func (s *cmdLineArgString) String() string { return s.value }
func (s *cmdLineArgString) Set(v string) error {
	s.isSet, s.value = true, v
	return nil
}

type cmdLineArgInt struct {
	cmdLineArgBase
	value int64
}

func (s *cmdLineArgInt) String() string { return strconv.FormatInt(s.value, 10) }
func (s *cmdLineArgInt) Set(v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	s.isSet, s.value = true, n
	return nil
}

func initCmdFlag(s cmdLineArg, cmdName string, usage string) {
	allCmdLineArgs = append(allCmdLineArgs, s)
	if cmdName != "" { // only env var makes sense
		flag.Var(s, cmdName, usage)
	}
}

func customPrintUsage() {
	fmt.Printf("Usage of %s:\n\n", os.Args[0])
	for _, f := range allCmdLineArgs {
		if f.getCmdName() == "v" { // don't print "-v" (shortcut for -version)
			continue
		}
		if f.getCmdName() != "" {
			fmt.Printf("  -%s\n", f.getCmdName())
		}
		if f.getEnvName() != "" {
			fmt.Printf("  (env %s)\n", f.getEnvName())
		}
		fmt.Print("    \t")
		fmt.Print(strings.ReplaceAll(f.getDescription(), "\n", "\n    \t"))
		fmt.Print("\n\n")
	}
}

// CmdEnvBool declares a flag settable as -cmdFlagName or envName; either may be "".
func CmdEnvBool(usage string, def bool, cmdFlagName string, envName string) *bool {
	sf := &cmdLineArgBool{cmdLineArgBase{cmdFlagName, envName, usage, false}, def}
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.value
}

func CmdEnvString(usage string, def string, cmdFlagName string, envName string) *string {
	sf := &cmdLineArgString{cmdLineArgBase{cmdFlagName, envName, usage, false}, def}
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.value
}

func CmdEnvInt(usage string, def int64, cmdFlagName string, envName string) *int64 {
	sf := &cmdLineArgInt{cmdLineArgBase{cmdFlagName, envName, usage, false}, def}
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.value
}

// ParseCmdFlagsCombiningWithEnv parses os.Args, then for every declared flag not
// explicitly set on the command line, falls back to its associated environment
// variable if present.
func ParseCmdFlagsCombiningWithEnv() {
	flag.Usage = customPrintUsage
	flag.Parse()

	for _, f := range allCmdLineArgs {
		if f.isFlagSet() || f.getEnvName() == "" {
			continue
		}
		if envValue, isSet := os.LookupEnv(f.getEnvName()); isSet {
			_ = f.Set(envValue)
		}
	}
}
