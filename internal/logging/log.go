// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package logging provides the structured logger shared by all commands.
// Output goes to stdout, and optionally also into a log file.
package logging

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Singleton log writer. Writes to stdout, and optionally to a file
type tee struct {
	sync.Mutex
	out    io.Writer
	file   *bufio.Writer
	fileOS *os.File
}

var console = &tee{out: os.Stdout}

func (t *tee) Write(p []byte) (n int, err error) {
	t.Lock()
	defer t.Unlock()
	n, err = t.out.Write(p)
	if err != nil || t.file == nil {
		return n, err
	}
	return t.file.Write(p)
}

func (t *tee) close() error {
	if t.file == nil {
		return nil
	}
	if err := t.file.Flush(); err != nil {
		return err
	}
	err := t.fileOS.Close()
	t.file, t.fileOS = nil, nil
	return err
}

// Enables logging into the given file in addition to stdout. Replaces any previous log file
func AlsoToFile(fileName string) error {
	console.Lock()
	defer console.Unlock()
	if err := console.close(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	console.fileOS, console.file = f, bufio.NewWriter(f)
	return nil
}

// Flushes and closes the log file, if any
func Close() error {
	console.Lock()
	defer console.Unlock()
	return console.close()
}

// Returns the console logger at the given level
func Console(level zerolog.Level) zerolog.Logger {
	return New(console, level)
}

// Returns a human readable logger writing to w at the given level
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// Returns a child logger tagged with the given component name
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Returns the debug level if verbose is set, else the info level
func Level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
