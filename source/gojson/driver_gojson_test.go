package gojson_test

import (
	"context"
	"strings"
	"testing"

	"github.com/reoring/attrmap"
	"github.com/reoring/attrmap/source/gojson"
)

func TestDriver_DecodesLikeDefault(t *testing.T) {
	js := []byte(`{"id":"a1","phones":{"main":{"number":"555"}},"n":[1.5,null]}`)
	def, err := attrmap.DecodeDocument(attrmap.JSONBytes(js), attrmap.DecodeOpt{})
	if err != nil {
		t.Fatalf("default: %v", err)
	}

	attrmap.SetJSONDriver(gojson.Driver())
	defer attrmap.UseDefaultJSONDriver()
	if attrmap.CurrentJSONDriver().Name() != "go-json" {
		t.Fatalf("driver not installed")
	}
	got, err := attrmap.DecodeDocument(attrmap.JSONBytes(js), attrmap.DecodeOpt{})
	if err != nil {
		t.Fatalf("go-json: %v", err)
	}

	s := attrmap.MustSchema("drv", []attrmap.Entry{
		attrmap.Prop("id", attrmap.Field(attrmap.FieldID, nil)),
		attrmap.Prop("phones", attrmap.Pass(
			attrmap.Prop("{p}", attrmap.String(attrmap.Attr[string]{
				Key:   attrmap.Template("phones/{p}"),
				Value: attrmap.Pluck[string]("number"),
			})),
		)),
	})
	a, err := s.Evaluate(context.Background(), def)
	if err != nil {
		t.Fatalf("evaluate default: %v", err)
	}
	b, err := s.Evaluate(context.Background(), got)
	if err != nil {
		t.Fatalf("evaluate go-json: %v", err)
	}
	x, y := a.Attributes.StringAttributes[0], b.Attributes.StringAttributes[0]
	if a.ID != b.ID || x.Key != y.Key || x.Value != y.Value {
		t.Fatalf("drivers disagree: %+v vs %+v", a, b)
	}
}

func TestDriver_DuplicateKeys(t *testing.T) {
	src := gojson.NewBytes([]byte(`{"a":1,"a":2}`))
	_, err := attrmap.DecodeDocument(src, attrmap.DecodeOpt{OnDuplicate: attrmap.DuplicateError})
	if de, ok := attrmap.AsDecodeError(err); !ok || de.Code != attrmap.CodeDuplicateKey {
		t.Fatalf("expected duplicate_key, got %v", err)
	}
}

func TestDriver_MaxBytes(t *testing.T) {
	attrmap.SetJSONDriver(gojson.Driver())
	defer attrmap.UseDefaultJSONDriver()

	big := []byte(`{"id":"a1","note":"` + strings.Repeat("x", 5000) + `"}`)
	_, err := attrmap.DecodeDocument(attrmap.JSONBytes(big), attrmap.DecodeOpt{MaxBytes: 100})
	if de, ok := attrmap.AsDecodeError(err); !ok || de.Code != attrmap.CodeTruncated {
		t.Fatalf("expected truncated, got %v", err)
	}

	small := []byte(`{"id":"a1"}`)
	if _, err := attrmap.DecodeDocument(attrmap.JSONBytes(small), attrmap.DecodeOpt{MaxBytes: 100}); err != nil {
		t.Fatalf("document under the limit rejected: %v", err)
	}
}

func TestSource_LocationTracksOffset(t *testing.T) {
	src := gojson.NewBytes([]byte(`{"a": 12}`))
	if src.Location() != -1 {
		t.Fatalf("expected -1 before reading, got %d", src.Location())
	}
	var last int64
	for i := 0; i < 4; i++ {
		if _, err := src.NextToken(); err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if src.Location() < last {
			t.Fatalf("offset went backwards: %d < %d", src.Location(), last)
		}
		last = src.Location()
	}
	if last <= 0 || last > 9 {
		t.Fatalf("final offset %d outside the input", last)
	}
}
