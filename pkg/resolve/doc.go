// Package resolve turns the symbolic references of a rendered template into
// live values.
//
// Every reference occurrence gets one Resolver. Resolvers form a closed set
// of kinds that share one surface:
//
//   - KindKeypath: data references ("user.name", "./x", "../x", "~/x")
//   - KindIndex: loop indices ("@index" and named index references)
//   - KindComputed: expressions over other references
//   - KindSpecial: "@keypath", "@rootpath", "@this", "@guid"
//
// A resolver is a dependent of whatever it reads (a model node, a fragment's
// index table, other resolvers) and a source for whatever registers with it.
// Construction computes the initial value and hands the resolver to the
// caller's callback before binding into its source, so the caller can wire
// it up before any notification can arrive.
//
//	r := resolve.Resolve(env, fragID, "@index", func(r resolve.Resolver) {
//	    r.Register(binding)
//	})
//	defer r.Unbind()
package resolve
