package formats

import (
	"bytes"
	"encoding/binary"
	"testing"

	"pax/internal/metadata"
)

// buildRPMHeaderSection assembles one header section (preamble + index
// records + data blob, padded to 8 bytes) from a list of (tag, type,
// value) entries, mirroring the layout readHeaderSection expects.
func buildRPMHeaderSection(entries []struct {
	tag, typ uint32
	data     []byte
}) []byte {
	var dataBlob bytes.Buffer
	type rec struct{ tag, typ, offset, count uint32 }
	var recs []rec
	for _, e := range entries {
		offset := uint32(dataBlob.Len())
		count := uint32(1)
		if e.typ == rpmStringArrayType {
			count = uint32(bytes.Count(e.data, []byte{0}))
		}
		dataBlob.Write(e.data)
		recs = append(recs, rec{e.tag, e.typ, offset, count})
	}

	var buf bytes.Buffer
	buf.Write([]byte{0x8e, 0xad, 0xe8, 0x01, 0, 0, 0, 0}) // 8-byte preamble (magic ignored by reader)
	binary.Write(&buf, binary.BigEndian, uint32(len(recs)))
	binary.Write(&buf, binary.BigEndian, uint32(dataBlob.Len()))
	for _, r := range recs {
		binary.Write(&buf, binary.BigEndian, r.tag)
		binary.Write(&buf, binary.BigEndian, r.typ)
		binary.Write(&buf, binary.BigEndian, r.offset)
		binary.Write(&buf, binary.BigEndian, r.count)
	}
	buf.Write(dataBlob.Bytes())
	for buf.Len()%8 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func cstr(s string) []byte { return append([]byte(s), 0) }

func TestParseRPMDescriptor(t *testing.T) {
	lead := make([]byte, 96)
	copy(lead[:4], RPMMagic)

	sig := buildRPMHeaderSection(nil)
	main := buildRPMHeaderSection([]struct {
		tag, typ uint32
		data     []byte
	}{
		{rpmtagName, rpmStringType, cstr("curl")},
		{rpmtagVersion, rpmStringType, cstr("7.88.1")},
		{rpmtagRelease, rpmStringType, cstr("1")},
		{rpmtagSummary, rpmStringType, cstr("command line tool for transferring data")},
		{rpmtagURL, rpmStringType, cstr("https://curl.se")},
		{rpmtagRequireName, rpmStringArrayType, append(cstr("openssl"), cstr("zlib")...)},
		{rpmtagRequireVer, rpmStringArrayType, append(cstr("1.1.0"), cstr("")...)},
	})

	raw := append(append(lead, sig...), main...)

	p, err := ParseRPMDescriptor(raw, metadata.Origin{Kind: metadata.OriginRPM, URL: "file:///curl.rpm"}, "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "curl" {
		t.Fatalf("got name %q", p.Name)
	}
	if p.Version.String() != "7.88.1-1" {
		t.Fatalf("got version %q", p.Version.String())
	}
	if p.Kind != metadata.KindRPM {
		t.Fatalf("got kind %q", p.Kind)
	}
	if len(p.RuntimeDependencies) != 2 {
		t.Fatalf("got %d runtime deps, want 2", len(p.RuntimeDependencies))
	}
	if p.RuntimeDependencies[0].Name != "openssl" || p.RuntimeDependencies[0].Kind != metadata.DepSpecific {
		t.Fatalf("got first dep %+v", p.RuntimeDependencies[0])
	}
	if p.RuntimeDependencies[1].Name != "zlib" || p.RuntimeDependencies[1].Kind != metadata.DepLatest {
		t.Fatalf("got second dep %+v", p.RuntimeDependencies[1])
	}
}

func TestParseRPMDescriptorRejectsBadMagic(t *testing.T) {
	raw := make([]byte, 200)
	if _, err := ParseRPMDescriptor(raw, metadata.Origin{}, ""); err == nil {
		t.Fatalf("expected bad magic to be rejected")
	}
}

func TestParseYumDescriptorRetagsKind(t *testing.T) {
	lead := make([]byte, 96)
	copy(lead[:4], RPMMagic)
	sig := buildRPMHeaderSection(nil)
	main := buildRPMHeaderSection([]struct {
		tag, typ uint32
		data     []byte
	}{
		{rpmtagName, rpmStringType, cstr("bash")},
		{rpmtagVersion, rpmStringType, cstr("5.2")},
	})
	raw := append(append(lead, sig...), main...)

	p, err := ParseYumDescriptor(raw, metadata.Origin{Kind: metadata.OriginYum}, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != metadata.KindYum {
		t.Fatalf("got kind %q", p.Kind)
	}
}
