package edgelog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/Station-Manager/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

func (c *Configurator) initializeRollingFileLogger() (*lumberjack.Logger, error) {
	const op errors.Op = "edgelog.Configurator.initializeRollingFileLogger"

	path := c.Config.LogFile
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgLogDir)
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxBackups: c.Config.LogFileMaxBackups,
		MaxAge:     c.Config.LogFileMaxAgeDays,
		MaxSize:    c.Config.LogFileMaxSizeMB,
	}, nil
}

// initializeConsole returns the writer console output goes to, Console or
// stdout, and opens the rotating log file when one is configured. The file
// gets its own copy of every console line, see writeConsole.
func (c *Configurator) initializeConsole() (io.Writer, error) {
	out := c.Console
	if out == nil {
		out = os.Stdout
	}
	if c.Config.LogFile == emptyString {
		return out, nil
	}

	fw, err := c.initializeRollingFileLogger()
	if err != nil {
		return nil, err
	}
	c.fileWriter = fw
	return out, nil
}
