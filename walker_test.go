package attrmap_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/reoring/attrmap"
)

func mustDoc(t *testing.T, js string) any {
	t.Helper()
	doc, err := attrmap.DecodeDocument(attrmap.JSONBytes([]byte(js)), attrmap.DecodeOpt{})
	if err != nil {
		t.Fatalf("decode %s: %v", js, err)
	}
	return doc
}

func phoneSchema(t *testing.T) *attrmap.Schema {
	t.Helper()
	s, err := attrmap.NewSchema("phones", []attrmap.Entry{
		attrmap.Prop("phoneNumbers", attrmap.Pass(
			attrmap.Prop("{idx}", attrmap.String(attrmap.Attr[string]{
				Key:   attrmap.Template("phoneNumbers/{idx}"),
				Value: attrmap.Pluck[string]("number"),
			})),
		)),
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestEvaluate_PhoneNumbersFixture(t *testing.T) {
	doc := mustDoc(t, `{"phoneNumbers":{"main":{"number":"555-1111"},"fax":{"number":"555-2222"}}}`)
	rec, err := phoneSchema(t).Evaluate(context.Background(), doc)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got := map[string]string{}
	for _, a := range rec.Attributes.StringAttributes {
		got[a.Key] = a.Value
	}
	want := map[string]string{"phoneNumbers/main": "555-1111", "phoneNumbers/fax": "555-2222"}
	if !reflect.DeepEqual(got, want) || len(rec.Attributes.StringAttributes) != 2 {
		t.Fatalf("unexpected attributes: %+v", rec.Attributes.StringAttributes)
	}
	if rec.Len() != 2 {
		t.Fatalf("expected only string attributes, got %d total", rec.Len())
	}
}

func TestEvaluate_AbsentLiteralEmitsNothing(t *testing.T) {
	s := attrmap.MustSchema("absent", []attrmap.Entry{
		attrmap.Prop("id", attrmap.Field(attrmap.FieldID, nil)),
		attrmap.Prop("contact", attrmap.String(attrmap.Attr[string]{
			Key:   attrmap.Template("contact"),
			Value: attrmap.Pluck[string]("email"),
			Children: []attrmap.Entry{
				attrmap.Prop("verified", attrmap.Boolean(attrmap.Attr[bool]{Key: attrmap.Template("contact/verified")})),
			},
		})),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"id":"x1","other":{"email":"a@b"}}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.ID != "x1" {
		t.Fatalf("id: got %q", rec.ID)
	}
	if rec.Len() != 0 {
		t.Fatalf("expected no attributes, got %+v", rec.Attributes)
	}
}

func TestEvaluate_CaptureCountMatchesOwnKeys(t *testing.T) {
	s := attrmap.MustSchema("tags", []attrmap.Entry{
		attrmap.Prop("tags", attrmap.Pass(
			attrmap.Prop("{i}", attrmap.String(attrmap.Attr[string]{Key: attrmap.Template("tags/{i}")})),
		)),
	})
	cases := []struct {
		doc  string
		want int
	}{
		{`{"tags":{"a":"x","b":"y","c":"z"}}`, 3},
		{`{"tags":["x","y"]}`, 2},
		{`{"tags":{}}`, 0},
		{`{"tags":"scalar"}`, 0},
		{`{"tags":null}`, 0},
	}
	for _, tc := range cases {
		rec, err := s.Evaluate(context.Background(), mustDoc(t, tc.doc))
		if err != nil {
			t.Fatalf("%s: %v", tc.doc, err)
		}
		if n := len(rec.Attributes.StringAttributes); n != tc.want {
			t.Fatalf("%s: expected %d attributes, got %d", tc.doc, tc.want, n)
		}
	}
}

func TestEvaluate_ArrayIndexesInOrder(t *testing.T) {
	s := attrmap.MustSchema("list", []attrmap.Entry{
		attrmap.Prop("{i}", attrmap.Number(attrmap.Attr[float64]{Key: attrmap.Template("n/{i}")})),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `[3, 1, 2]`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var keys []string
	var vals []float64
	for _, a := range rec.Attributes.NumberAttributes {
		keys = append(keys, a.Key)
		vals = append(vals, a.Value)
	}
	if !reflect.DeepEqual(keys, []string{"n/0", "n/1", "n/2"}) || !reflect.DeepEqual(vals, []float64{3, 1, 2}) {
		t.Fatalf("unexpected order: %v %v", keys, vals)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	s := phoneSchema(t)
	doc := mustDoc(t, `{"phoneNumbers":{"z":{"number":"1"},"a":{"number":"2"},"m":{"number":"3"}}}`)
	first, err := s.Evaluate(context.Background(), doc)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := s.Evaluate(context.Background(), doc)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestEvaluate_DateTimeBoundary(t *testing.T) {
	s := attrmap.MustSchema("dates", []attrmap.Entry{
		attrmap.Prop("openedAt", attrmap.DateTime(attrmap.Attr[time.Time]{Key: attrmap.Template("openedAt")})),
	})

	_, err := s.Evaluate(context.Background(), mustDoc(t, `{"openedAt":"2024-13-40"}`))
	me, ok := attrmap.AsMappingError(err)
	if !ok {
		t.Fatalf("expected MappingError, got %v", err)
	}
	if me.Code != attrmap.CodeInvalidFormat || me.Role != attrmap.RoleValue || me.DocumentPath != "/openedAt" {
		t.Fatalf("unexpected mapping error: %+v", me)
	}

	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"openedAt":"2024-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got := rec.Attributes.DateTimeAttributes[0].Value
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEvaluate_EscapesCapturedKeys(t *testing.T) {
	s := attrmap.MustSchema("esc", []attrmap.Entry{
		attrmap.Prop("items", attrmap.Pass(
			attrmap.Prop("{k}", attrmap.String(attrmap.Attr[string]{Key: attrmap.Template("items/{k}")})),
		)),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"items":{"a/b":"v","c~d":"w"}}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var segs [][]string
	for _, a := range rec.Attributes.StringAttributes {
		segs = append(segs, attrmap.SplitKey(a.Key))
	}
	want := [][]string{{"items", "a/b"}, {"items", "c~d"}}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
	if k := rec.Attributes.StringAttributes[0].Key; k != "items/a~1b" {
		t.Fatalf("unexpected escaped key %q", k)
	}
}

func TestEvaluate_CapturesDoNotLeakBetweenSiblings(t *testing.T) {
	s := attrmap.MustSchema("nested", []attrmap.Entry{
		attrmap.Prop("{group}", attrmap.Pass(
			attrmap.Prop("{item}", attrmap.String(attrmap.Attr[string]{
				Key:   attrmap.Template("{group}/{item}"),
				Value: attrmap.Func(func(c *attrmap.Context) (string, error) {
					var names []string
					for k := range c.Captures() {
						names = append(names, k)
					}
					sort.Strings(names)
					return strings.Join(names, ","), nil
				}),
			})),
		)),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"g1":{"a":1},"g2":{"b":2}}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var keys []string
	for _, a := range rec.Attributes.StringAttributes {
		keys = append(keys, a.Key)
		if a.Value != "group,item" {
			t.Fatalf("%s: unexpected visible captures %q", a.Key, a.Value)
		}
	}
	if !reflect.DeepEqual(keys, []string{"g1/a", "g2/b"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestEvaluate_IgnoreClaimsKeyFromCapture(t *testing.T) {
	s := attrmap.MustSchema("ignore", []attrmap.Entry{
		attrmap.Prop("internalId", attrmap.Ignore()),
		attrmap.Prop("{k}", attrmap.String(attrmap.Attr[string]{Key: attrmap.Template("{k}")})),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"internalId":"secret","city":"Oslo"}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(rec.Attributes.StringAttributes) != 1 || rec.Attributes.StringAttributes[0].Key != "city" {
		t.Fatalf("expected only city, got %+v", rec.Attributes.StringAttributes)
	}
}

func TestEvaluate_ReferenceAndInfo(t *testing.T) {
	s := attrmap.MustSchema("ref", []attrmap.Entry{
		attrmap.Prop("eligibility", attrmap.Pass(
			attrmap.Prop("{i}", attrmap.Reference("eligibility-codes", attrmap.Attr[string]{
				Key:   attrmap.Template("eligibility/{i}"),
				Value: attrmap.Pluck[string]("code"),
				Info:  attrmap.Expr[any](`{"note": value.note}`),
			})),
		)),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"eligibility":[{"code":"SENIOR","note":"65+"}]}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	refs := rec.Attributes.ReferenceStringAttributes
	if len(refs) != 1 {
		t.Fatalf("expected one reference, got %+v", refs)
	}
	r := refs[0]
	if r.List != "eligibility-codes" || r.Key != "eligibility/0" || r.Value != "SENIOR" {
		t.Fatalf("unexpected reference %+v", r)
	}
	if string(r.Info) != `{"note":"65+"}` {
		t.Fatalf("unexpected info %s", r.Info)
	}
}

func TestEvaluate_NullInfoStaysNil(t *testing.T) {
	s := attrmap.MustSchema("info", []attrmap.Entry{
		attrmap.Prop("n", attrmap.Number(attrmap.Attr[float64]{Key: attrmap.Template("n")})),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"n": 4.5}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	a := rec.Attributes.NumberAttributes[0]
	if a.Info != nil || a.Language != "" || a.Value != 4.5 {
		t.Fatalf("unexpected attribute %+v", a)
	}
}

func TestEvaluate_Translatable(t *testing.T) {
	s := attrmap.MustSchema("names", []attrmap.Entry{
		attrmap.Prop("name", attrmap.Translatable(attrmap.Attr[any]{
			Key:      attrmap.Template("name"),
			Language: attrmap.Const("en"),
		})),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"name":{"fr":"Bonjour","en":"Hello"}}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got := rec.Attributes.StringAttributes
	if len(got) != 2 || got[0].Language != "en" || got[0].Value != "Hello" || got[1].Language != "fr" {
		t.Fatalf("unexpected translations %+v", got)
	}

	rec, err = s.Evaluate(context.Background(), mustDoc(t, `{"name":"Hello"}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := rec.Attributes.StringAttributes; len(got) != 1 || got[0].Language != "en" {
		t.Fatalf("unexpected plain translation %+v", got)
	}
}

func TestEvaluate_MappingErrorCarriesPaths(t *testing.T) {
	s := attrmap.MustSchema("err", []attrmap.Entry{
		attrmap.Prop("sites", attrmap.Pass(
			attrmap.Prop("{i}", attrmap.Number(attrmap.Attr[float64]{Key: attrmap.Template("sites/{i}")})),
		)),
	})
	_, err := s.Evaluate(context.Background(), mustDoc(t, `{"sites":[1,"two"]}`))
	me, ok := attrmap.AsMappingError(err)
	if !ok {
		t.Fatalf("expected MappingError, got %v", err)
	}
	if me.Code != attrmap.CodeInvalidType || me.DocumentPath != "/sites/1" || me.SchemaPath != "/sites/{i}" {
		t.Fatalf("unexpected error %+v", me)
	}
}

func TestEvaluate_GeneratorPanicBecomesMappingError(t *testing.T) {
	s := attrmap.MustSchema("panic", []attrmap.Entry{
		attrmap.Prop("x", attrmap.String(attrmap.Attr[string]{
			Key: attrmap.Func(func(*attrmap.Context) (string, error) { panic("boom") }),
		})),
	})
	_, err := s.Evaluate(context.Background(), mustDoc(t, `{"x":"y"}`))
	me, ok := attrmap.AsMappingError(err)
	if !ok || me.Code != attrmap.CodeGenerator {
		t.Fatalf("expected generator_error, got %v", err)
	}
}

func TestEvaluate_CustomErrorKeepsCause(t *testing.T) {
	sentinel := errors.New("lookup failed")
	s := attrmap.MustSchema("cause", []attrmap.Entry{
		attrmap.Prop("x", attrmap.String(attrmap.Attr[string]{
			Key:   attrmap.Template("x"),
			Value: attrmap.Func(func(*attrmap.Context) (string, error) { return "", sentinel }),
		})),
	})
	_, err := s.Evaluate(context.Background(), mustDoc(t, `{"x":"y"}`))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestEvaluate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := phoneSchema(t).Evaluate(ctx, mustDoc(t, `{"phoneNumbers":{}}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEvaluate_FieldsAndContextValues(t *testing.T) {
	s := attrmap.MustSchema("ctx", []attrmap.Entry{
		attrmap.Prop("id", attrmap.Field(attrmap.FieldID, nil)),
		attrmap.Prop("title", attrmap.Field(attrmap.FieldName, attrmap.Expr[string](`value + " (" + root.id + ")"`))),
		attrmap.Prop("hours", attrmap.Pass(
			attrmap.Prop("{day}", attrmap.Boolean(attrmap.Attr[bool]{
				Key:   attrmap.Template("hours/{day}"),
				Value: attrmap.Func(func(c *attrmap.Context) (bool, error) { return c.Value != nil, nil }),
				Info:  attrmap.Func(func(c *attrmap.Context) (any, error) { return c.Path(), nil }),
			})),
		)),
	})
	rec, err := s.Evaluate(context.Background(), mustDoc(t, `{"id":"a1","title":"Clinic","hours":{"mon":"9-5"}}`))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.ID != "a1" || rec.Name != "Clinic (a1)" {
		t.Fatalf("unexpected fields %q %q", rec.ID, rec.Name)
	}
	b := rec.Attributes.BooleanAttributes
	if len(b) != 1 || !b[0].Value || string(b[0].Info) != `["hours","mon"]` {
		t.Fatalf("unexpected boolean attributes %+v", b)
	}
}

func TestEvaluate_NullPolicy(t *testing.T) {
	entries := []attrmap.Entry{
		attrmap.Prop("fax", attrmap.String(attrmap.Attr[string]{Key: attrmap.Template("fax")})),
		attrmap.Prop("phones", attrmap.Pass(
			attrmap.Prop("{p}", attrmap.String(attrmap.Attr[string]{Key: attrmap.Template("phones/{p}")})),
		)),
	}
	doc := `{"fax": null, "phones": {"main": "555", "old": null}}`

	skip := attrmap.MustSchema("skip", entries)
	rec, err := skip.Evaluate(context.Background(), mustDoc(t, doc))
	if err != nil {
		t.Fatalf("null values should be skipped: %v", err)
	}
	if got := rec.Attributes.StringAttributes; len(got) != 1 || got[0].Key != "phones/main" {
		t.Fatalf("unexpected attributes %+v", got)
	}

	visit := attrmap.MustSchema("visit", entries, attrmap.Options{Nulls: attrmap.NullVisit})
	_, err = visit.Evaluate(context.Background(), mustDoc(t, doc))
	me, ok := attrmap.AsMappingError(err)
	if !ok || me.Code != attrmap.CodeInvalidType || me.DocumentPath != "/fax" {
		t.Fatalf("expected invalid_type at /fax, got %v", err)
	}
}

func TestEvaluate_TranslatableBadValuePath(t *testing.T) {
	s := attrmap.MustSchema("names", []attrmap.Entry{
		attrmap.Prop("name", attrmap.Translatable(attrmap.Attr[any]{Key: attrmap.Template("name")})),
	})
	_, err := s.Evaluate(context.Background(), mustDoc(t, `{"name":{"en":"Hello","fr":{"text":"Bonjour"}}}`))
	me, ok := attrmap.AsMappingError(err)
	if !ok || me.Code != attrmap.CodeInvalidType {
		t.Fatalf("expected invalid_type, got %v", err)
	}
	if me.DocumentPath != "/name/fr" || me.SchemaPath != "/name" || me.Role != attrmap.RoleValue {
		t.Fatalf("unexpected location %s [schema %s] role %s", me.DocumentPath, me.SchemaPath, me.Role)
	}
}
