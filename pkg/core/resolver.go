package core

// Resolver decides which of two records sharing an id survives a merge.
// Implementations must be pure: same inputs, same output, no I/O.
type Resolver func(local, remote Record) Record

// Resolve implements last-writer-wins on UpdatedAt.
// Ties go to the remote side so merges are reproducible.
func Resolve(local, remote Record) Record {
	if remote.UpdatedAt >= local.UpdatedAt {
		return remote
	}
	return local
}

var _ Resolver = Resolve
