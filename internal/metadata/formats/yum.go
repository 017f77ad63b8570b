package formats

import "pax/internal/metadata"

// ParseYumDescriptor reads a yum-hosted RPM the same way as a standalone
// RPM file; yum is a catalog/transport convention layered over the RPM
// binary format, not a distinct binary shape, so this module only retags
// the Kind field instead of duplicating ParseRPMDescriptor's header walk.
func ParseYumDescriptor(raw []byte, origin metadata.Origin, hash string) (metadata.PackageRecord, error) {
	p, err := ParseRPMDescriptor(raw, origin, hash)
	if err != nil {
		return metadata.PackageRecord{}, err
	}
	p.Kind = metadata.KindYum
	return p, nil
}
