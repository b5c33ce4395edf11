// Package database provides shared timeout conventions for storage access.
// Repositories derive bounded contexts here instead of picking ad-hoc
// timeouts at every call site.
package database

import (
	"context"
	"time"
)

// Timeout ceilings for storage operations.
const (
	// DefaultQueryTimeout bounds read queries.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds single-row writes.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultTxTimeout bounds multi-statement transactions.
	DefaultTxTimeout = 15 * time.Second

	// DefaultBulkTimeout bounds batch writes such as bulk indexing.
	DefaultBulkTimeout = 30 * time.Second
)

// bound caps the parent at d. A parent deadline that is already sooner
// stays in effect; the ceiling never extends it.
func bound(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// QueryContext derives a context bounded by DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return bound(parent, DefaultQueryTimeout)
}

// WriteContext derives a context bounded by DefaultWriteTimeout.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return bound(parent, DefaultWriteTimeout)
}

// TxContext derives a context bounded by DefaultTxTimeout.
func TxContext(parent context.Context) (context.Context, context.CancelFunc) {
	return bound(parent, DefaultTxTimeout)
}

// BulkContext derives a context bounded by DefaultBulkTimeout.
func BulkContext(parent context.Context) (context.Context, context.CancelFunc) {
	return bound(parent, DefaultBulkTimeout)
}
