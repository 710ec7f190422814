package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
	"go.uber.org/zap"
	libvirtxml "libvirt.org/go/libvirtxml"

	"github.com/jbweber/hostvirt/internal/metrics"
	"github.com/jbweber/hostvirt/internal/virterr"
)

const (
	opCreateVolume = "create_volume"
	opDeleteVolume = "delete_volume"
)

// CreateVolume creates a volume of capacityGB gigabytes with nothing
// allocated up front. An empty format means DefaultVolumeFormat.
func (p *Pool) CreateVolume(ctx context.Context, name string, capacityGB uint64, format VolumeFormat) (*VolumeInfo, error) {
	if format == "" {
		format = DefaultVolumeFormat
	}
	spec := VolumeSpec{Name: name, Format: format, CapacityGB: capacityGB}
	if err := spec.Validate(); err != nil {
		return nil, virterr.InvalidArg("invalid volume spec", err)
	}

	pool, err := p.lookup()
	if err != nil {
		metrics.ObserveOperation(opCreateVolume, metrics.ResultError)
		return nil, err
	}

	volumeXML, err := generateVolumeXML(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to generate volume XML: %w", err)
	}

	vol, err := p.client.StorageVolCreateXML(pool, volumeXML, 0)
	if err != nil {
		metrics.ObserveOperation(opCreateVolume, metrics.ResultError)
		return nil, virterr.Wrap(err, "failed to create volume "+name)
	}

	p.logger.Info("volume created",
		zap.String("volume", name),
		zap.Uint64("capacity_gb", capacityGB),
		zap.String("format", string(format)),
	)
	metrics.ObserveOperation(opCreateVolume, metrics.ResultSuccess)

	info := &VolumeInfo{Name: vol.Name, Pool: p.name, Capacity: capacityGB << 30}
	if path, err := p.client.StorageVolGetPath(vol); err == nil {
		info.Path = path
	}
	return info, nil
}

// DeleteVolume removes the volume from the pool. A volume that does not exist
// counts as deleted; a pool that does not exist is an error.
func (p *Pool) DeleteVolume(_ context.Context, name string) (bool, error) {
	pool, err := p.lookup()
	if err != nil {
		metrics.ObserveOperation(opDeleteVolume, metrics.ResultError)
		return false, err
	}

	vol, err := p.client.StorageVolLookupByName(pool, name)
	if err == nil {
		err = p.client.StorageVolDelete(vol, 0)
	}

	switch {
	case err == nil:
		p.logger.Info("volume deleted", zap.String("volume", name))
		metrics.ObserveOperation(opDeleteVolume, metrics.ResultSuccess)
		return true, nil
	case isVolumeMissing(err):
		p.logger.Debug("volume already absent", zap.String("volume", name))
		metrics.ObserveOperation(opDeleteVolume, metrics.ResultNoop)
		return true, nil
	default:
		metrics.ObserveOperation(opDeleteVolume, metrics.ResultError)
		return false, virterr.Wrap(err, "failed to delete volume "+name)
	}
}

func isVolumeMissing(err error) bool {
	code, ok := virterr.NativeCode(err)
	return ok && code == virterr.CodeNoStorageVol
}

// ListVolumes lists all volumes in the pool.
// Volumes that disappear while listing are skipped.
func (p *Pool) ListVolumes(_ context.Context) ([]VolumeInfo, error) {
	pool, err := p.lookup()
	if err != nil {
		return nil, err
	}

	// NeedResults: 1 means populate the volumes slice
	volumes, _, err := p.client.StoragePoolListAllVolumes(pool, 1, 0)
	if err != nil {
		return nil, virterr.Wrap(err, "failed to list volumes")
	}

	volumeInfos := make([]VolumeInfo, 0, len(volumes))
	for _, vol := range volumes {
		info, err := p.volumeInfo(vol)
		if err != nil {
			p.logger.Debug("skipping volume", zap.String("volume", vol.Name), zap.Error(err))
			continue
		}
		volumeInfos = append(volumeInfos, info)
	}

	return volumeInfos, nil
}

// Volume returns information about one volume.
func (p *Pool) Volume(_ context.Context, name string) (*VolumeInfo, error) {
	pool, err := p.lookup()
	if err != nil {
		return nil, err
	}

	vol, err := p.client.StorageVolLookupByName(pool, name)
	if err != nil {
		return nil, virterr.Wrap(err, "volume not found: "+name)
	}

	info, err := p.volumeInfo(vol)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// VolumeExists checks if a volume exists in the pool.
func (p *Pool) VolumeExists(ctx context.Context, name string) (bool, error) {
	_, err := p.Volume(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case isVolumeMissing(err):
		return false, nil
	default:
		return false, err
	}
}

func (p *Pool) volumeInfo(vol libvirt.StorageVol) (VolumeInfo, error) {
	path, err := p.client.StorageVolGetPath(vol)
	if err != nil {
		return VolumeInfo{}, virterr.Wrap(err, "failed to get volume path")
	}

	_, capacity, allocation, err := p.client.StorageVolGetInfo(vol)
	if err != nil {
		return VolumeInfo{}, virterr.Wrap(err, "failed to get volume info")
	}

	return VolumeInfo{
		Name:       vol.Name,
		Pool:       p.name,
		Path:       path,
		Capacity:   capacity,
		Allocation: allocation,
	}, nil
}

// generateVolumeXML generates XML for a storage volume.
func generateVolumeXML(spec VolumeSpec) (string, error) {
	vol := &libvirtxml.StorageVolume{
		Name: spec.Name,
		Allocation: &libvirtxml.StorageVolumeSize{
			Value: 0,
		},
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: spec.CapacityGB,
			Unit:  "G",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{
				Type: string(spec.Format),
			},
		},
	}

	xml, err := vol.Marshal()
	if err != nil {
		return "", err
	}

	// Clean up the XML: remove standalone attribute
	xml = strings.TrimPrefix(xml, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>")
	return strings.TrimSpace(xml), nil
}
