//go:build darwin

package platform

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/wippyai/objbridge/errors"
)

func listMounts() ([]Volume, error) {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindUnsupported, err, "getfsstat")
	}
	stats := make([]unix.Statfs_t, n)
	if _, err := unix.Getfsstat(stats, unix.MNT_NOWAIT); err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindUnsupported, err, "getfsstat")
	}

	var vols []Volume
	for i := range stats {
		path := unix.ByteSliceToString(stats[i].Mntonname[:])
		removable := strings.HasPrefix(path, "/Volumes/")
		if path != "/" && !removable {
			continue
		}
		name := filepath.Base(path)
		if path == "/" {
			name = "Macintosh HD"
		}
		vols = append(vols, Volume{
			Name:             name,
			Path:             path,
			IsRemovable:      removable,
			IsEjectable:      removable,
			IsRootFilesystem: path == "/",
		})
	}
	return vols, nil
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
