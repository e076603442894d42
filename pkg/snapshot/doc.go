// Package snapshot persists store documents under a name.
//
// A snapshot is the JSON encoding of a store's root value. Two backends
// are provided: DiskStore keeps one file per snapshot in a directory and
// S3Store keeps one object per snapshot under a bucket prefix.
//
//	store, err := snapshot.NewDiskStore("snapshots", 10<<20)
//	if err != nil {
//	    return err
//	}
//	info, err := store.Save(ctx, "before-migration", root)
//	...
//	doc, err := store.Load(ctx, "before-migration")
//
// Names are limited to letters, digits, '.', '_' and '-', and must start
// with a letter or digit, so they are safe as file names and object keys.
package snapshot
