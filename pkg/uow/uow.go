// Package uow scopes a sequence of local-store writes into one unit that
// commits or rolls back together. Gateway calls are never covered; they get
// explicit compensation at the service layer.
package uow

import "context"

// Manager runs fn inside a transactional scope. A normal return commits,
// any error rolls back and is returned unchanged. Nested WithinTx calls
// reuse the outer scope; only the outermost call commits.
type Manager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
