package common

import (
	"errors"
	"fmt"
	"log"
	"os"
)

type LoggerWrapper struct {
	impl              *log.Logger
	verbosity         int
	duplicateToStderr bool
}

func MakeLogger(logFile string, verbosity int) (*LoggerWrapper, error) {
	var impl *log.Logger

	if logFile != "" && logFile != "stderr" {
		out, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}
		impl = log.New(out, "", 0)
	} else if logFile == "" || logFile == "stderr" {
		impl = log.New(os.Stderr, "", 0)
	}

	if verbosity < -1 || verbosity > 2 {
		return nil, errors.New("incorrect verbosity passed")
	}

	return &LoggerWrapper{
		impl:              impl,
		verbosity:         verbosity,
		duplicateToStderr: logFile != "stderr",
	}, nil
}

func formatStr(prefix string, v ...any) string {
	return fmt.Sprintf("%s%s", prefix, fmt.Sprintln(v...))
}

func (logger *LoggerWrapper) Info(verbosity int, v ...any) {
	if logger.verbosity >= verbosity && logger.impl != nil {
		_ = logger.impl.Output(0, formatStr("<6>", v...))
	}
}

func (logger *LoggerWrapper) Error(v ...any) {
	if logger.impl != nil {
		_ = logger.impl.Output(0, formatStr("<3>", v...))
	}
	if logger.duplicateToStderr {
		_, _ = fmt.Fprint(os.Stderr, formatStr("", v...))
	}
}
