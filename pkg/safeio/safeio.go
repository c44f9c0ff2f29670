package safeio

import (
	"fmt"
	"os"
)

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// When the file does not exist, it uses a sane default of 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	return os.WriteFile(path, data, mode)
}

// CreateExclusive creates path with the given content and fails with an error
// wrapping os.ErrExist if the file is already there. Existing files are never
// truncated.
func CreateExclusive(path string, data []byte, mode os.FileMode) error {
	// #nosec G304 -- callers pass paths joined under a validated root
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := file.Write(data); err != nil {
			_ = file.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return file.Close()
}
