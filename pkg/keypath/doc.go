// Package keypath provides the strongly typed key paths used to address
// locations inside a reactobj value tree.
//
// A Path is an immutable, ordered sequence of segments. Each segment is either
// a string key (for map containers) or a non-negative integer index (for
// sequence containers). The empty path addresses the root.
//
//	p := keypath.New("users", 0, "name")
//	p.String()            // "users.0.name"
//	p.Parent().String()   // "users.0"
//
// Loosely typed input (from scenario files, HTTP requests or application code
// that builds paths dynamically) is validated once at the boundary with From
// or Parse; everything past the boundary works with Path values only.
//
// Segments compare by their canonical key: the string key, or the decimal form
// of an index. Index 0 and key "0" therefore address the same location, the
// same way object keys behave in a JSON document.
package keypath
