package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONReport stores v as indented json at dst. The data goes to a temp
// file in the same directory first and is renamed over dst once synced, so
// an interrupted run leaves the previous report in place.
func WriteJSONReport(dst string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report failed, err:%w", err)
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir:%s failed, err:%w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.temp")
	if err != nil {
		return fmt.Errorf("create temp report failed, err:%w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp report failed, err:%w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp report failed, err:%w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report failed, err:%w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp report failed, err:%w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("replace report:%s failed, err:%w", dst, err)
	}
	return nil
}
