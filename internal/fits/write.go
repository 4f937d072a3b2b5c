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

package fits

import (
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"path"
	"sort"
	"strings"
)

// Writes an in-memory FITS image to a file with given filename.
// Creates/overwrites the file if necessary. Compresses with gzip if .gz or .gzip suffix is present
func (f *Image) WriteFile(fileName string) error {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".gz", ".gzip":
		return writeToFile(fileName, func(w io.Writer) error {
			zw := gzip.NewWriter(w)
			if err := f.Write(zw); err != nil {
				return err
			}
			return zw.Close()
		})
	default:
		return writeToFile(fileName, f.Write)
	}
}

// Writes an in-memory FITS image to an io.Writer, as 32-bit floating point data
func (f *Image) Write(w io.Writer) error {
	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	writeInt32(&sb, "BITPIX", -32, "32-bit floating point")
	writeInt32(&sb, "NAXIS", int32(len(f.Naxisn)), "[1] Number of axis")
	for i := 0; i < len(f.Naxisn); i++ {
		writeInt32(&sb, fmt.Sprintf("NAXIS%d", i+1), f.Naxisn[i], "[1] Axis size")
	}
	writeFloat32(&sb, "BZERO", 0, "[1] Zero offset")
	writeFloat32(&sb, "BSCALE", 1, "[1] Value scaler")
	for _, key := range sortedKeys(f.Header.Strings) {
		writeString(&sb, key, f.Header.Strings[key], "")
	}
	for _, h := range f.Header.History {
		writeHistory(&sb, h)
	}
	writeEnd(&sb)
	padBlock(&sb, sb.Len(), ' ')

	// Write header block(s)
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	// Write payload data, replacing NaNs with zeros for compatibility, and pad the last block with zeros
	if err := writeFloat32Array(w, f.Data, true); err != nil {
		return err
	}
	pad := strings.Builder{}
	padBlock(&pad, 4*len(f.Data), 0)
	_, err := io.WriteString(w, pad.String())
	return err
}

// Pads a FITS block which currently holds length bytes to the full block size
func padBlock(sb *strings.Builder, length int, fill byte) {
	if rem := length % fitsBlockSize; rem > 0 {
		for i := rem; i < fitsBlockSize; i++ {
			sb.WriteByte(fill)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header int32 value
func writeInt32(w io.Writer, key string, value int32, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float32 value. Always carries a decimal point, so it reads back as float
func writeFloat32(w io.Writer, key string, value float32, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, strings.ToUpper(fmt.Sprintf("%#g", value)), comment)
}

// Writes a FITS header string value, truncated to fit a single line
func writeString(w io.Writer, key, value, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	value = strings.ReplaceAll(value, "'", "''")
	if len(value) > 68 {
		value = value[:68]
	}
	line := fmt.Sprintf("%-8s= '%-8s'", key, value)
	if comment != "" && len(line)+3+len(comment) <= HeaderLineSize {
		line += " / " + comment
	}
	fmt.Fprintf(w, "%-80s", line)
}

// Writes a FITS history record
func writeHistory(w io.Writer, value string) {
	if len(value) > 72 {
		value = value[:72]
	}
	fmt.Fprintf(w, "HISTORY %-72s", value)
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Writes FITS binary body data in network byte order.
// Optionally replaces NaNs with zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32, replaceNaNs bool) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += (bufLen >> 2) {
		size := len(data) - block
		if size > (bufLen >> 2) {
			size = (bufLen >> 2)
		}

		for offset := 0; offset < size; offset++ {
			d := data[block+offset]
			if replaceNaNs && math.IsNaN(float64(d)) {
				d = 0
			}
			val := math.Float32bits(d)
			buf[(offset<<2)+0] = byte(val >> 24)
			buf[(offset<<2)+1] = byte(val >> 16)
			buf[(offset<<2)+2] = byte(val >> 8)
			buf[(offset<<2)+3] = byte(val)
		}
		if _, err := w.Write(buf[:(size << 2)]); err != nil {
			return err
		}
	}
	return nil
}
