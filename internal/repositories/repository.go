package repositories

import "context"

// Repository aggregates all repository interfaces behind one handle.
type Repository interface {
	Assessment() AssessmentRepository
	Submission() SubmissionRepository

	// User domain (read-only, backed by the identity provider with a local
	// cache table)
	User() UserRepository

	// WithTransaction runs fn against a transaction-scoped Repository. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
