// Package storage provides the journal backends.
//
// All backends implement journal.Storage. New selects one from
// configuration:
//
//	store, err := storage.New(ctx, &cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// SQLite stores times as Unix nanoseconds, so the pure Go and cgo drivers
// are interchangeable on the same file. Redis keeps the newest MaxEntries
// records in a list and filters queries client side.
package storage
