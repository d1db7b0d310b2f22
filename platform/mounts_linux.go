//go:build linux

package platform

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/wippyai/objbridge/errors"
)

const mountsFile = "/proc/self/mounts"

var mediaRoots = []string{"/media/", "/mnt/", "/run/media/"}

func listMounts() ([]Volume, error) {
	f, err := os.Open(mountsFile)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindUnsupported, err, "read mount table")
	}
	defer f.Close()

	return parseMounts(bufio.NewScanner(f))
}

func parseMounts(sc *bufio.Scanner) ([]Volume, error) {
	var vols []Volume
	seen := make(map[string]bool)

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		path := unescapeMount(fields[1])
		if seen[path] {
			continue
		}

		removable := isMediaPath(path)
		if path != "/" && !removable {
			continue
		}
		seen[path] = true

		name := filepath.Base(path)
		if path == "/" {
			name = filepath.Base(unescapeMount(fields[0]))
		}

		vols = append(vols, Volume{
			Name:             name,
			Path:             path,
			IsRemovable:      removable,
			IsEjectable:      removable,
			IsRootFilesystem: path == "/",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err, "parse mount table")
	}
	return vols, nil
}

func isMediaPath(path string) bool {
	for _, root := range mediaRoots {
		if strings.HasPrefix(path, root) && len(path) > len(root) {
			return true
		}
	}
	return false
}

// unescapeMount decodes the octal escapes (\040 for space) used in the
// mount table.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func statVolume(v *Volume) error {
	var st unix.Statfs_t
	if err := unix.Statfs(v.Path, &st); err != nil {
		return errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err, "statfs "+v.Path)
	}
	bsize := uint64(st.Bsize)
	v.TotalCapacity = st.Blocks * bsize
	v.AvailableCapacity = st.Bavail * bsize
	return nil
}
