package formats

import (
 "bytes"
 "encoding/binary"
 "strings"

 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// RPMMagic is the RPM lead's 4-byte magic, grounded on
// holocm-holo-build's rpm/lead.go's newLead ([0xed, 0xab, 0xee, 0xdb]).
var RPMMagic = []byte{0xed, 0xab, 0xee, 0xdb}

// Tag ids read from the header section, per the LSB tag list reproduced in
// holocm-holo-build/.../rpm/header.go.
const (
 rpmtagName = 1000
 rpmtagVersion = 1001
 rpmtagRelease = 1002
 rpmtagSummary = 1004
 rpmtagDescription = 1005
 rpmtagURL = 1020
 rpmtagRequireName = 1049
 rpmtagRequireVer = 1050
 rpmtagProvideName = 1047
 rpmtagProvideVer = 1113
)

const (
 rpmStringType = 6
 rpmStringArrayType = 8
 rpmI18NStringType = 9
)

type rpmIndexRecord struct {
 Tag, Type, Offset, Count uint32
}

// readHeaderSection reads one RPM header section (the signature header or
// the main header — both share this shape: an 8-byte magic/reserved
// preamble, an index-record count and a data blob size, then that many
// 16-byte index records, then the data blob) starting at the current
// position of r, and returns the tag->value map plus the number of bytes
// consumed, padded to the next 8-byte boundary as RPM requires between
// sections.
func readHeaderSection(r *bytes.Reader) (map[uint32]interface{}, int, error) {
 start := r.Len()
 var preamble [8]byte
 if _, err := r.Read(preamble[:]); err != nil {
 return nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "read rpm header preamble")
 }

 var indexCount, dataSize uint32
 if err := binary.Read(r, binary.BigEndian, &indexCount); err != nil {
 return nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "read rpm header index count")
 }
 if err := binary.Read(r, binary.BigEndian, &dataSize); err != nil {
 return nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "read rpm header data size")
 }

 records := make([]rpmIndexRecord, indexCount)
 for i := range records {
 if err := binary.Read(r, binary.BigEndian, &records[i]); err != nil {
 return nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "read rpm index record")
 }
 }

 data := make([]byte, dataSize)
 if _, err := r.Read(data); err != nil {
 return nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "read rpm header data blob")
 }

 values := map[uint32]interface{}{}
 for _, rec := range records {
 switch rec.Type {
 case rpmStringType, rpmI18NStringType:
 values[rec.Tag] = cString(data[rec.Offset:])
 case rpmStringArrayType:
 values[rec.Tag] = cStringArray(data[rec.Offset:], int(rec.Count))
 }
 }

 consumed := start - r.Len()
 pad := (8 - consumed%8) % 8
 if pad > 0 {
 r.Seek(int64(pad), 1)
 consumed += pad
 }
 return values, consumed, nil
}

func cString(b []byte) string {
 if i := bytes.IndexByte(b, 0); i >= 0 {
 b = b[:i]
 }
 return string(b)
}

func cStringArray(b []byte, count int) []string {
 out := make([]string, 0, count)
 for i := 0; i < count && len(b) > 0; i++ {
 s := cString(b)
 out = append(out, s)
 b = b[len(s)+1:]
 }
 return out
}

// ParseRPMDescriptor reads an RPM file's lead, signature header, and main
// header, recovering enough of the header to build a PackageRecord:
// Name/Version/Release/Summary/Description/URL and the Require name +
// version pairs (as runtime dependencies). Provide tags are not read.
func ParseRPMDescriptor(raw []byte, origin metadata.Origin, hash string) (metadata.PackageRecord, error) {
 if len(raw) < 96+4 || !bytes.Equal(raw[:4], RPMMagic) {
 return metadata.PackageRecord{}, pkgerrors.New(pkgerrors.Input, "not an rpm file (bad magic)")
 }
 r := bytes.NewReader(raw[96:]) // skip the 96-byte lead

 if _, _, err := readHeaderSection(r); err != nil { // signature header, discarded
 return metadata.PackageRecord{}, err
 }
 values, _, err := readHeaderSection(r)
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 name, _ := values[rpmtagName].(string)
 ver, _ := values[rpmtagVersion].(string)
 release, _ := values[rpmtagRelease].(string)
 if release != "" {
 ver = ver + "-" + release
 }
 v, err := version.Parse(ver)
 if err != nil {
 return metadata.PackageRecord{}, pkgerrors.Wrap(pkgerrors.Input, err, "parse rpm version")
 }

 runtimeDeps, err := rpmDependencies(values, rpmtagRequireName, rpmtagRequireVer)
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 desc, _ := values[rpmtagDescription].(string)
 if desc == "" {
 desc, _ = values[rpmtagSummary].(string)
 }
 url, _ := values[rpmtagURL].(string)

 p := metadata.PackageRecord{
 Name: strings.ToLower(name),
 Version: v,
 Kind: metadata.KindRPM,
 Description: desc,
 Homepage: url,
 Origin: origin,
 Hash: strings.ToLower(hash),
 RuntimeDependencies: runtimeDeps,
 InstallKind: metadata.InstallKind{
 Tag: metadata.PreBuilt,
 },
 }
 if err := p.Validate(); err != nil {
 return metadata.PackageRecord{}, err
 }
 return p, nil
}

func rpmDependencies(values map[uint32]interface{}, nameTag, verTag uint32) ([]metadata.DependencySpec, error) {
 names, _ := values[nameTag].([]string)
 vers, _ := values[verTag].([]string)

 specs := make([]metadata.DependencySpec, 0, len(names))
 for i, n := range names {
 if n == "" {
 continue
 }
 var constraintStr string
 if i < len(vers) {
 constraintStr = vers[i]
 }
 if constraintStr == "" {
 specs = append(specs, metadata.DependencySpec{Kind: metadata.DepLatest, Name: n})
 continue
 }
 r, err := version.ParseConstraint(">=" + constraintStr)
 if err != nil {
 return nil, err
 }
 specs = append(specs, metadata.DependencySpec{Kind: metadata.DepSpecific, Name: n, Constraint: r})
 }
 return specs, nil
}
