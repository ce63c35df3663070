package utils

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns the hex encoded xxhash64 of everything read from r.
func Fingerprint(r io.Reader) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash stream failed, err:%w", err)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, h.Sum64())
	return hex.EncodeToString(buf), nil
}

func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file failed, err:%w", err)
	}
	defer f.Close()
	return Fingerprint(f)
}
