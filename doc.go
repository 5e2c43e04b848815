// Package attrmap maps heterogeneous partner JSON documents onto a flat, typed
// attribute record:
//
// - A declarative mapping schema (Entry/Node) built once and reused
// - Capture tokens ("{idx}") that iterate every own key of an object or array
// - Generators for each attribute slot (key, value, info, language)
// - A stable error model: SchemaErrors at build time, MappingError per document
// - Raw input decoding with duplicate-key/depth/size enforcement (DecodeDocument)
//
// Design policy:
// - Keep only public APIs in the root package; put tokenizers under source/ and internal/.
// - Place YAML schema files under schemafile/, batch evaluation under batch/, and the CLI under cmd/attrmap.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	s := attrmap.MustSchema("partner", []attrmap.Entry{
//		attrmap.Prop("id", attrmap.Field(attrmap.FieldID, nil)),
//		attrmap.Prop("phoneNumbers", attrmap.Pass(
//			attrmap.Prop("{idx}", attrmap.String(attrmap.Attr[string]{
//				Key:   attrmap.Template("phoneNumbers/{idx}"),
//				Value: attrmap.Pluck[string]("number"),
//			})),
//		)),
//	})
//	rec, err := attrmap.EvaluateFrom(ctx, s, attrmap.JSONBytes(data), attrmap.DecodeOpt{})
package attrmap
