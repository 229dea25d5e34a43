// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSplitSize keeps every part under the bot upload limit.
const DefaultSplitSize int64 = 49 * 1024 * 1024

// partSuffix mirrors split(1) naming: aa, ab, ... zz.
func partSuffix(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}

// Split cuts path into parts of at most size bytes next to the original.
// A file that already fits is returned as its only part. On error no part
// is left on disk.
func Split(path string, size int64) (parts []string, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("split size must be positive")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.Size() <= size {
		return []string{path}, nil
	}
	if (fi.Size()+size-1)/size > 26*26 {
		return nil, fmt.Errorf("%s needs more than %d parts", path, 26*26)
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	defer func() {
		if err != nil {
			for _, p := range parts {
				os.Remove(p)
			}
			parts = nil
		}
	}()
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s.part_%s", path, partSuffix(i))
		out, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return parts, err
		}
		n, cerr := io.CopyN(out, in, size)
		closeErr := out.Close()
		if n == 0 {
			os.Remove(name)
			if cerr != io.EOF {
				return parts, cerr
			}
			return parts, nil
		}
		parts = append(parts, name)
		switch {
		case cerr != nil && cerr != io.EOF:
			return parts, cerr
		case closeErr != nil:
			return parts, closeErr
		case cerr == io.EOF:
			return parts, nil
		}
	}
}

// Join concatenates parts into dst in order.
func Join(parts []string, dst string) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	for _, p := range parts {
		in, err := os.Open(p)
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			return err
		}
	}
	return out.Close()
}

// Prune keeps the newest keep archives in dir and returns the removed paths.
// Archive names embed a sortable timestamp.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var archives []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, archivePrefix) &&
			(strings.HasSuffix(name, archiveExt) || strings.HasSuffix(name, archiveExt+encryptedExt)) {
			archives = append(archives, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(archives)))
	var removed []string
	for _, name := range archives[min(keep, len(archives)):] {
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}
