package graphfile

import (
	"bytes"
	"testing"
)

// FuzzParseJSON feeds arbitrary bytes to the document parser. Anything that
// parses must survive validation, the reducer and re-encoding.
func FuzzParseJSON(f *testing.F) {
	f.Add([]byte(sampleJSON))
	f.Add([]byte(`{"starting": null, "states": [], "transitions": []}`))
	f.Add([]byte(`{"states": [{"id": null, "ending": true, "location": {"x": 1, "y": 2}}]}`))
	f.Add([]byte(`{"transitions": [{"id": "t0", "start": {"state": "q0"}, "end": {"state": "q9"}}]}`))
	f.Add([]byte(`{"starting": "q7", "states": [{"id": "q7"}, {"id": "q7"}]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))
	f.Add([]byte(``))

	f.Fuzz(func(t *testing.T, data []byte) {
		d, err := ParseJSON(data)
		if err != nil {
			return
		}
		_ = d.Validate()
		_ = d.Graph()
		if _, err := ToJSON(d, false); err != nil {
			t.Fatalf("re-encoding a parsed document: %v", err)
		}
	})
}

// FuzzReadBytes feeds arbitrary bytes to the file reader, which sniffs
// bundles by their zip magic.
func FuzzReadBytes(f *testing.F) {
	d, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		f.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteBundle(&buf, d, Meta{Name: "sample"}); err != nil {
		f.Fatal(err)
	}
	f.Add(buf.Bytes())
	f.Add(buf.Bytes()[:buf.Len()/2])
	f.Add([]byte(sampleJSON))
	f.Add([]byte{0x50, 0x4B, 0x03, 0x04})
	f.Add([]byte("not a zip"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, _, err := ReadBytes(data)
		if err != nil {
			return
		}
		_ = GenerateDOT(doc, "fuzz")
	})
}
