/*
Package source reads the bytes that binimage renders.

Most files are read verbatim. Zstandard compressed files with a .zst
extension are decompressed first, and CD images described by a .cue sheet are
read from the file holding the first data track with any raw sector framing
removed.
*/
package source

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vchimishuk/chub/cue"
)

const (
	sectorHeader  = 16
	sectorSize    = 2048
	sectorTrailer = 288
	rawSectorSize = sectorHeader + sectorSize + sectorTrailer
)

// ErrNoDataTrack is returned for a cue sheet with only audio tracks.
var ErrNoDataTrack = errors.New("source: cue sheet has no data track")

func firstDataTrack(sheet *cue.Sheet) (string, cue.TrackDataType, error) {
	for _, file := range sheet.Files {
		for _, track := range file.Tracks {
			switch track.DataType {
			case cue.DataTypeMode1_2048, cue.DataTypeMode1_2352:
				return file.Name, track.DataType, nil
			}
		}
	}
	return "", cue.DataTypeAudio, ErrNoDataTrack
}

// Strips the sync, header and error correction from each raw sector
func userData(r io.Reader) ([]byte, error) {
	var (
		b      bytes.Buffer
		sector [rawSectorSize]byte
	)
	for {
		n, err := io.ReadFull(r, sector[:])
		switch err {
		case nil:
		case io.EOF:
			return b.Bytes(), nil
		case io.ErrUnexpectedEOF:
			if n > sectorHeader {
				end := n
				if end > sectorHeader+sectorSize {
					end = sectorHeader + sectorSize
				}
				b.Write(sector[sectorHeader:end])
			}
			return b.Bytes(), nil
		default:
			return nil, err
		}
		b.Write(sector[sectorHeader : sectorHeader+sectorSize])
	}
}

func readCue(file string) ([]byte, error) {
	sheet, err := cue.ParseFile(file)
	if err != nil {
		return nil, err
	}

	fileName, dataType, err := firstDataTrack(sheet)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(filepath.Dir(file), fileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if dataType == cue.DataTypeMode1_2352 {
		return userData(f)
	}

	return io.ReadAll(f)
}

func readZstd(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	b, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}

	return b, nil
}

// ReadFile returns the bytes to render for the named file.
func ReadFile(file string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".cue":
		return readCue(file)
	case ".zst":
		return readZstd(file)
	}
	return os.ReadFile(file)
}

// Digest returns the SHA-1 of b as upper case hex.
func Digest(b []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(b))
}
