package platform

import (
	"encoding/base64"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/errors"
)

// maxThumbnailBytes caps how much of a file is encoded.
const maxThumbnailBytes = 64 << 10

// FileThumbnail returns the base64 encoding of the first 64 KiB of the file
// at path.
func (p *Platform) FileThumbnail(path string) (objbridge.Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return objbridge.Null, errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err, "open "+path)
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, maxThumbnailBytes))
	if err != nil {
		return objbridge.Null, errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err, "read "+path)
	}

	p.logger.Debug("encoding thumbnail", zap.String("path", path), zap.Int("bytes", len(head)))
	return p.rt.NewString(base64.StdEncoding.EncodeToString(head))
}

// GetFileThumbnailBase64 encodes the file named by the borrowed string path.
func (p *Platform) GetFileThumbnailBase64(path objbridge.Handle) objbridge.Handle {
	s, err := p.rt.StringValue(path)
	if err != nil {
		return p.rt.Return(objbridge.Null, err)
	}
	return p.rt.Return(p.FileThumbnail(s))
}
