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
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mlnoga/fibrelight/internal/stats"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

// Reads a monochrome image from the file with the given name. Colour images are converted to luminance.
// Decode failures and empty images are reported as ErrInvalidImage
func NewImageFromFile(fileName string, id int, log zerolog.Logger) (*Image, error) {
	i := NewImage()
	i.ID = id
	if err := i.ReadFile(fileName, log); err != nil {
		return nil, err
	}
	if i.Channels() == 3 {
		log.Debug().Msgf("%d: converting %s to luminance", i.ID, i.DimensionsToString())
		i.ToLuminance()
	}
	if err := i.CheckMono(); err != nil {
		return nil, err
	}
	return i, nil
}

// Read image data from the file with the given name. Decodes TIFF, PNG, JPEG and BMP by suffix,
// and FITS otherwise. Decompresses gzip if .gz or gzip suffix is present.
func (f *Image) ReadFile(fileName string, log zerolog.Logger) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	f.FileName = fileName
	var r io.Reader = bufio.NewReader(file)

	switch strings.ToLower(path.Ext(fileName)) {
	case ".tif", ".tiff", ".png", ".jpg", ".jpeg", ".bmp":
		err = f.ReadGoImage(r)
	case ".gz", ".gzip":
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(r); err != nil {
			return errors.Wrapf(ErrInvalidImage, "%d: %s: %v", f.ID, fileName, err)
		}
		defer zr.Close()
		err = f.Read(zr, log)
	default:
		err = f.Read(r, log)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return err
		}
		return errors.Wrapf(ErrInvalidImage, "%d: %s: %v", f.ID, fileName, err)
	}
	log.Debug().Msgf("%d: read %s with dimensions %s", f.ID, fileName, f.DimensionsToString())
	return nil
}

func (f *Image) PopHeaderInt32(key string) (res int32, err error) {
	if val, ok := f.Header.Ints[key]; ok {
		delete(f.Header.Ints, key)
		return val, nil
	}
	return 0, errors.Errorf("%d: FITS header does not contain key %s", f.ID, key)
}

func (f *Image) PopHeaderInt32OrFloat(key string) (res float32, err error) {
	if val, ok := f.Header.Ints[key]; ok {
		delete(f.Header.Ints, key)
		return float32(val), nil
	} else if val, ok := f.Header.Floats[key]; ok {
		delete(f.Header.Floats, key)
		return val, nil
	}
	return 0, errors.Errorf("%d: FITS header does not contain key %s", f.ID, key)
}

// Reads a FITS header and data unit
func (f *Image) Read(r io.Reader, log zerolog.Logger) (err error) {
	if err = f.Header.read(r, f.ID, log); err != nil {
		return err
	}

	// check mandatory fields as per standard
	if !f.Header.Bools["SIMPLE"] {
		return errors.Wrapf(ErrInvalidImage, "%d: not a valid FITS file; SIMPLE=T missing in header", f.ID)
	}
	delete(f.Header.Bools, "SIMPLE")

	if f.Bitpix, err = f.PopHeaderInt32("BITPIX"); err != nil {
		return err
	}
	var naxis int32
	if naxis, err = f.PopHeaderInt32("NAXIS"); err != nil {
		return err
	}
	if naxis < 0 || naxis > maxAxes {
		return errors.Wrapf(ErrInvalidImage, "%d: NAXIS=%d out of range", f.ID, naxis)
	}
	f.Naxisn = make([]int32, naxis)
	pixels := int64(0)
	if naxis > 0 {
		pixels = 1
	}
	for i := int32(1); i <= naxis; i++ {
		name := "NAXIS" + strconv.FormatInt(int64(i), 10)
		var nai int32
		if nai, err = f.PopHeaderInt32(name); err != nil {
			return err
		}
		if nai <= 0 {
			return errors.Wrapf(ErrInvalidImage, "%d: %s=%d must be positive", f.ID, name, nai)
		}
		f.Naxisn[i-1] = nai
		pixels *= int64(nai)
		if pixels > math.MaxInt32 {
			return errors.Wrapf(ErrInvalidImage, "%d: more than %d pixels", f.ID, math.MaxInt32)
		}
	}
	f.Pixels = int32(pixels)

	if f.Bzero, err = f.PopHeaderInt32OrFloat("BZERO"); err != nil {
		f.Bzero = 0
	}
	if f.Bscale, err = f.PopHeaderInt32OrFloat("BSCALE"); err != nil {
		f.Bscale = 1
	}
	return f.readData(r, log)
}

const maxAxes = 999 // per FITS standard

const bufLen int = 16 * 1024 // input buffer length for reading from file

// Decoder for one big-endian FITS data value
type valueDecoder func(b []byte) float32

func decoderForBitpix(bitpix int32) (bytesPerValue int, decode valueDecoder, lossy bool, err error) {
	switch bitpix {
	case 8:
		return 1, func(b []byte) float32 { return float32(b[0]) }, false, nil
	case 16:
		return 2, func(b []byte) float32 { return float32(int16(binary.BigEndian.Uint16(b))) }, false, nil
	case 32:
		return 4, func(b []byte) float32 { return float32(int32(binary.BigEndian.Uint32(b))) }, true, nil
	case 64:
		return 8, func(b []byte) float32 { return float32(int64(binary.BigEndian.Uint64(b))) }, true, nil
	case -32:
		return 4, func(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) }, false, nil
	case -64:
		return 8, func(b []byte) float32 { return float32(math.Float64frombits(binary.BigEndian.Uint64(b))) }, true, nil
	default:
		return 0, nil, false, errors.Errorf("unknown BITPIX value %d", bitpix)
	}
}

// Read image data from file, convert to float32 data type, apply BZero offset and set BZero to 0 afterwards.
func (f *Image) readData(r io.Reader, log zerolog.Logger) error {
	bytesPerValue, decode, lossy, err := decoderForBitpix(f.Bitpix)
	if err != nil {
		return errors.Wrapf(ErrInvalidImage, "%d: %v", f.ID, err)
	}
	if lossy {
		log.Warn().Msgf("%d: loss of precision converting BITPIX %d to float32 values", f.ID, f.Bitpix)
	}

	f.Data = make([]float32, int(f.Pixels))
	buf := make([]byte, bufLen)
	for dataIndex := 0; dataIndex < len(f.Data); {
		bytesToRead := (len(f.Data) - dataIndex) * bytesPerValue
		if bytesToRead > bufLen {
			bytesToRead = bufLen
		}
		if _, err := io.ReadFull(r, buf[:bytesToRead]); err != nil {
			return errors.Wrapf(ErrInvalidImage, "%d: reading pixel %d: %v", f.ID, dataIndex, err)
		}
		for i := 0; i < bytesToRead; i += bytesPerValue {
			f.Data[dataIndex] = decode(buf[i:i+bytesPerValue])*f.Bscale + f.Bzero
			dataIndex++
		}
	}
	f.Bzero, f.Bscale = 0, 1 // reflect that data values incorporate these now
	f.Stats = stats.NewStats(f.Data, f.Width())
	return nil
}

func (h *Header) read(r io.Reader, id int, log zerolog.Logger) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		bytesRead, err := io.ReadFull(r, buf)
		if err != nil {
			return errors.Wrapf(ErrInvalidImage, "%d: reading FITS header: %v", id, err)
		}
		h.Length += int32(bytesRead)

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				log.Warn().Msgf("%d: cannot parse '%s', ignoring", id, string(line))
			} else {
				h.readLine(reParser.SubexpNames(), subValues, id, lineNo, log)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, log zerolog.Logger) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] != nil && len(subNames[i]) == 1 {
			switch c := subNames[i][0]; c {
			case byte('E'): // end line
				h.End = true
			case byte('H'): // history line
				h.History = append(h.History, strings.TrimRight(string(subValues[i]), " "))
			case byte('C'): // comment line
				h.Comments = append(h.Comments, strings.TrimRight(string(subValues[i]), " "))
			case byte('k'): // key
				key = string(subValues[i])
			case byte('b'): // boolean
				if len(subValues[i]) > 0 {
					v := subValues[i][0]
					h.Bools[key] = v == byte('t') || v == byte('T')
				}
			case byte('i'): // int
				if val, err := strconv.ParseInt(string(subValues[i]), 10, 64); err == nil {
					h.Ints[key] = int32(val)
				}
			case byte('f'): // float
				if val, err := strconv.ParseFloat(strings.Replace(string(subValues[i]), "D", "E", 1), 64); err == nil {
					h.Floats[key] = float32(val)
				}
			case byte('s'): // string
				h.Strings[key] = strings.TrimRight(string(subValues[i]), " ")
			case byte('d'): // date
				h.Dates[key] = string(subValues[i])
			case byte('c'): // comment
				// ignore value comments
			default:
				log.Warn().Msgf("%d:%d: unknown token '%s'", id, lineNo, string(c))
			}
		}
	}
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + white + "(?P<H>" + rest + ")"

	commKey := "COMMENT"
	commLine := commKey + white + "(?P<C>" + rest + ")"

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?[0-9]*\\.[0-9]*(?:[ED][-+]?[0-9]+)?)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)"
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
