// Package quotesync is the composition root for a local-first quote list.
//
// A local collection of quotes is kept eventually consistent with a remote
// authority. Reads never touch the network: the collection lives in memory
// and is persisted as a single JSON entry in a pluggable backend (a file,
// a SQLite row or a Badger key). A scheduler periodically fetches the
// remote snapshot and merges it with last-writer-wins resolution, where a
// tie goes to the remote copy.
//
// Usage:
//
//	app, err := quotesync.New(
//		quotesync.WithRemoteURL("http://localhost:8080"),
//		quotesync.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	updated, err := app.Engine.Reconcile(ctx)
//	q, err := app.Store.PickRandom()
package quotesync
