package checkpoint

import (
	"strconv"
	"strings"
)

// File naming constants. Files are named checkpoint-<epoch>.ckpt with the
// epoch in decimal and no padding.
const (
	FilePrefix = "checkpoint-"
	Extension  = ".ckpt"
)

// FileName returns the file name used for epoch.
func FileName(epoch int) string {
	return FilePrefix + strconv.Itoa(epoch) + Extension
}

// ParseFileName inverts FileName. It reports false for any name that
// FileName could not have produced, including padded or signed epochs.
func ParseFileName(name string) (int, bool) {
	rest, ok := strings.CutSuffix(name, Extension)
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutPrefix(rest, FilePrefix)
	if !ok {
		return 0, false
	}
	epoch, err := strconv.Atoi(rest)
	if err != nil || epoch < 0 || strconv.Itoa(epoch) != rest {
		return 0, false
	}
	return epoch, true
}
