package formats

import (
 "archive/tar"
 "bytes"
 "compress/gzip"
 "io"
 "strings"

 "github.com/blakesmith/ar"
 "pax/internal/metadata"
 "pax/internal/pkgerrors"
)

// DebianBinaryMagic holds the 4-byte RPM lead magic (the same bytes as
// RPMMagic), not a .deb signature; .deb files are recognized by
// IsARDebContainer.
var DebianBinaryMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

// IsARDebContainer reports whether r's first bytes look like an `ar`
// archive whose members begin with "control.tar" and "data.tar", the other
// distribution-binary format alongside the RPM-shaped one. It inspects
// only member headers, not a magic prefix — the two formats are
// distinguished by different checks.
func IsARDebContainer(raw []byte) bool {
 reader := ar.NewReader(bytes.NewReader(raw))
 sawControl, sawData := false, false
 for i := 0; i < 8; i++ { // a .deb has 3 members; bound the scan defensively
 hdr, err := reader.Next()
 if err == io.EOF {
 break
 }
 if err != nil {
 return false
 }
 name := hdr.Name
 switch {
 case len(name) >= 11 && name[:11] == "control.tar":
 sawControl = true
 case len(name) >= 8 && name[:8] == "data.tar":
 sawData = true
 }
 }
 return sawControl && sawData
}

// ExtractDebControlTarGz reads the ar container in raw and returns the raw
// bytes of the "control" file inside control.tar.gz, which holds the
// Debian control stanza for this package (grounded on
// holocm-holo-build/src/holo-build/debian's package layout: control member
// followed by data member in an ar archive).
func ExtractDebControlTarGz(raw []byte) ([]byte, error) {
 reader := ar.NewReader(bytes.NewReader(raw))
 for {
 hdr, err := reader.Next()
 if err == io.EOF {
 return nil, pkgerrors.New(pkgerrors.Input, "ar archive has no control.tar member")
 }
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "read ar archive")
 }
 if len(hdr.Name) < 11 || hdr.Name[:11] != "control.tar" {
 continue
 }
 member := make([]byte, hdr.Size)
 if _, err := io.ReadFull(reader, member); err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "read control.tar member")
 }
 return readControlFileFromTarGz(member)
 }
}

func readControlFileFromTarGz(tarGz []byte) ([]byte, error) {
 gz, err := gzip.NewReader(bytes.NewReader(tarGz))
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "open control.tar.gz")
 }
 defer gz.Close()

 tr := tar.NewReader(gz)
 for {
 hdr, err := tr.Next()
 if err == io.EOF {
 return nil, pkgerrors.New(pkgerrors.Input, "control.tar has no control file")
 }
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "read control.tar")
 }
 if strings.TrimPrefix(hdr.Name, "./") == "control" {
 return io.ReadAll(tr)
 }
 }
}

// ParseDebDescriptor extracts the control stanza from a .deb (ar container)
// and parses it the same way as an apt Packages-file stanza.
func ParseDebDescriptor(raw []byte, origin metadata.Origin, hash string) (metadata.PackageRecord, error) {
 controlTar, err := ExtractDebControlTarGz(raw)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 stanzas := ParseControlStanzas(controlTar)
 if len(stanzas) == 0 {
 return metadata.PackageRecord{}, pkgerrors.New(pkgerrors.Input, "deb control file has no stanzas")
 }
 p, err := ParseAptPackagesStanza(stanzas[0], origin)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 p.Kind = metadata.KindDeb
 if p.Hash == "" {
 p.Hash = hash
 }
 return p, nil
}
