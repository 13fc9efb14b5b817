// Package datasource loads initial instance data from files and object
// storage.
//
// A location is a path (optionally file://) or s3://bucket/key. The
// format follows the extension: .json and .jsonc (comments allowed),
// .yaml and .yml, or .cbor.
//
//	l := datasource.NewLoader(datasource.WithS3(client))
//	data, err := l.Load(ctx, "s3://fixtures/todo.yaml")
package datasource
