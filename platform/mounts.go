package platform

import (
	"context"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/object"
)

// VolumeSchema is the element type returned by GetMounts.
var VolumeSchema = object.MustSchema("volume",
	object.Field{Name: "name", Type: wit.String{}},
	object.Field{Name: "path", Type: wit.String{}},
	object.Field{Name: "total-capacity", Type: wit.U64{}},
	object.Field{Name: "available-capacity", Type: wit.U64{}},
	object.Field{Name: "is-removable", Type: wit.Bool{}},
	object.Field{Name: "is-ejectable", Type: wit.Bool{}},
	object.Field{Name: "is-root-filesystem", Type: wit.Bool{}},
)

// Volume describes one mounted filesystem.
type Volume struct {
	Name              string
	Path              string
	TotalCapacity     uint64
	AvailableCapacity uint64
	IsRemovable       bool
	IsEjectable       bool
	IsRootFilesystem  bool
}

// Volumes lists user-visible mounts: the root filesystem and removable
// media. Capacities are queried in parallel; a volume whose capacity cannot
// be read is still listed with zero capacities.
func (p *Platform) Volumes(ctx context.Context) ([]Volume, error) {
	vols, err := listMounts()
	if err != nil {
		return nil, err
	}
	if err := statVolumes(ctx, p.logger, vols); err != nil {
		return nil, err
	}
	return vols, nil
}

func statVolumes(ctx context.Context, logger *zap.Logger, vols []Volume) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range vols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := statVolume(&vols[i]); err != nil {
				vols[i].TotalCapacity, vols[i].AvailableCapacity = 0, 0
				logger.Debug("volume capacity unavailable",
					zap.String("path", vols[i].Path),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	return g.Wait()
}

// Mounts builds an object array of volume records.
func (p *Platform) Mounts(ctx context.Context) (objbridge.Handle, error) {
	vols, err := p.Volumes(ctx)
	if err != nil {
		return objbridge.Null, err
	}

	items := make([]objbridge.Handle, 0, len(vols))
	for _, v := range vols {
		h, err := p.volume(v)
		if err != nil {
			for _, it := range items {
				p.rt.Release(it)
			}
			return objbridge.Null, err
		}
		items = append(items, h)
	}

	p.logger.Debug("listed mounts", zap.Int("count", len(items)))
	return p.array(items)
}

func (p *Platform) volume(v Volume) (objbridge.Handle, error) {
	name, err := p.rt.NewString(v.Name)
	if err != nil {
		return objbridge.Null, err
	}
	path, err := p.rt.NewString(v.Path)
	if err != nil {
		p.rt.Release(name)
		return objbridge.Null, err
	}

	h, err := p.rt.NewObject(object.NewBuilder(VolumeSchema).
		Handle("name", name).
		Handle("path", path).
		Uint("total-capacity", v.TotalCapacity).
		Uint("available-capacity", v.AvailableCapacity).
		Bool("is-removable", v.IsRemovable).
		Bool("is-ejectable", v.IsEjectable).
		Bool("is-root-filesystem", v.IsRootFilesystem))
	if err != nil {
		p.rt.Release(name)
		p.rt.Release(path)
		return objbridge.Null, err
	}
	return h, nil
}

// GetMounts returns the mounted volumes under the transfer convention.
func (p *Platform) GetMounts(ctx context.Context) objbridge.Handle {
	return p.rt.Return(p.Mounts(ctx))
}
