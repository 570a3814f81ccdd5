package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Container layout:
//
//	[4 bytes: Magic "TKCK"]
//	[4 bytes: Version (uint32 LE)]
//	[8 bytes: Header Size (uint64 LE)]
//	[Header: JSON]
//	[model state bytes][optimizer state bytes]
const (
	MagicBytes    = "TKCK"
	FormatVersion = 1

	fixedHeaderSize = 4 + 4 + 8
	maxHeaderSize   = 1 << 20
)

// requiredHeaderFields must all be present in a decoded header.
var requiredHeaderFields = []string{"architecture", "epoch", "model_size", "optimizer_size"}

// fileHeader is the JSON header of a checkpoint file.
type fileHeader struct {
	FormatVersion int       `json:"format_version"`
	Architecture  string    `json:"architecture"`
	Epoch         int       `json:"epoch"`
	ModelSize     int64     `json:"model_size"`
	OptimizerSize int64     `json:"optimizer_size"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
}

// computeChecksum returns the hex SHA-256 of model state followed by optimizer state.
func computeChecksum(modelState, optimizerState []byte) string {
	h := sha256.New()
	h.Write(modelState)
	h.Write(optimizerState)
	return hex.EncodeToString(h.Sum(nil))
}

// encodeRecord writes rec to w and returns the number of bytes written.
func encodeRecord(w io.Writer, rec Record, createdAt time.Time) (int64, error) {
	header := fileHeader{
		FormatVersion: FormatVersion,
		Architecture:  rec.Architecture,
		Epoch:         rec.Epoch,
		ModelSize:     int64(len(rec.ModelState)),
		OptimizerSize: int64(len(rec.OptimizerState)),
		Checksum:      computeChecksum(rec.ModelState, rec.OptimizerState),
		CreatedAt:     createdAt.UTC(),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("marshal header: %w", err)
	}

	fixed := make([]byte, fixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint64(fixed[8:16], uint64(len(headerJSON)))

	var written int64
	for _, chunk := range [][]byte{fixed, headerJSON, rec.ModelState, rec.OptimizerState} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// decodeRecord reads a checkpoint of exactly size bytes from r.
func decodeRecord(r io.Reader, size int64) (Record, time.Time, error) {
	fixed := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return Record{}, time.Time{}, truncated(err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return Record{}, time.Time{}, corruptf("invalid magic bytes %q", fixed[0:4])
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return Record{}, time.Time{}, corruptf("unsupported format version %d", v)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[8:16])
	if headerSize > maxHeaderSize {
		return Record{}, time.Time{}, corruptf("header size %d exceeds maximum", headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Record{}, time.Time{}, truncated(err)
	}
	header, err := parseHeader(headerJSON)
	if err != nil {
		return Record{}, time.Time{}, err
	}

	//nolint:gosec // G115: headerSize is bounded by maxHeaderSize
	want := int64(fixedHeaderSize) + int64(headerSize) + header.ModelSize + header.OptimizerSize
	if want != size {
		return Record{}, time.Time{}, corruptf("file is %d bytes, header describes %d", size, want)
	}

	modelState := make([]byte, header.ModelSize)
	if _, err := io.ReadFull(r, modelState); err != nil {
		return Record{}, time.Time{}, truncated(err)
	}
	optimizerState := make([]byte, header.OptimizerSize)
	if _, err := io.ReadFull(r, optimizerState); err != nil {
		return Record{}, time.Time{}, truncated(err)
	}

	if header.Checksum != "" && computeChecksum(modelState, optimizerState) != header.Checksum {
		return Record{}, time.Time{}, corruptf("checksum mismatch")
	}

	return Record{
		Architecture:   header.Architecture,
		Epoch:          header.Epoch,
		ModelState:     modelState,
		OptimizerState: optimizerState,
	}, header.CreatedAt, nil
}

// parseHeader decodes the JSON header and checks required fields.
func parseHeader(data []byte) (fileHeader, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fileHeader{}, corruptf("parse header: %v", err)
	}
	for _, name := range requiredHeaderFields {
		raw, ok := fields[name]
		if !ok || bytes.Equal(raw, []byte("null")) {
			return fileHeader{}, corruptf("missing field %q", name)
		}
	}

	var header fileHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return fileHeader{}, corruptf("parse header: %v", err)
	}
	if header.Epoch < 0 || header.ModelSize < 0 || header.OptimizerSize < 0 {
		return fileHeader{}, corruptf("negative epoch or size in header")
	}
	return header, nil
}

// truncated maps short reads to ErrCorrupt and passes other I/O errors through.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return corruptf("truncated file")
	}
	return err
}
