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

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	buf := bytes.Buffer{}
	l := Component(New(&buf, zerolog.InfoLevel), "analyze")
	l.Debug().Msg("hidden")
	l.Info().Int("id", 3).Msg("done")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message logged at info level: %q", out)
	}
	for _, want := range []string{"done", "id=3", "component=analyze"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestAlsoToFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "test.log")
	if err := AlsoToFile(fileName); err != nil {
		t.Fatal(err)
	}
	l := Console(zerolog.InfoLevel)
	l.Info().Msg("into the file")
	if err := Close(); err != nil {
		t.Fatal(err)
	}
	bs, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bs), "into the file") {
		t.Errorf("log file contains %q", string(bs))
	}
	if Level(true) != zerolog.DebugLevel || Level(false) != zerolog.InfoLevel {
		t.Errorf("unexpected levels")
	}
}
