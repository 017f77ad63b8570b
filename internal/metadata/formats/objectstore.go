package formats

import (
	"fmt"
	"strings"

	"pax/internal/metadata"
)

// ObjectKey builds the well-known key an object-store origin stores a
// package payload and its sibling metadata.json descriptor under, mirroring
// the native archive's "metadata.json at the archive root" convention but
// keyed by name/version instead of by archive path, since an object store
// has no archive boundary of its own.
func ObjectKey(name string, v string, suffix string) string {
	return fmt.Sprintf("%s/%s/%s", name, v, suffix)
}

// ParseObjectStoreDescriptor parses an object store's metadata.json object
// (fetched from ObjectKey(name, version, "metadata.json")) the same way as
// the native format, then retags Kind and fills in the bucket-addressed
// Origin. Object stores carry the same descriptor shape as native archives
// — only the transport and origin addressing differ.
func ParseObjectStoreDescriptor(raw []byte, bucket, account, region string, hash string) (metadata.PackageRecord, error) {
	origin := metadata.Origin{
		Kind:    metadata.OriginObjectStore,
		Bucket:  bucket,
		Account: account,
		Region:  region,
	}
	p, err := ParseNativeMetadataJSON(raw, origin)
	if err != nil {
		return metadata.PackageRecord{}, err
	}
	p.Kind = metadata.KindNative
	if p.Hash == "" {
		p.Hash = strings.ToLower(hash)
	}
	return p, nil
}
