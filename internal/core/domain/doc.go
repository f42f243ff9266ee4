// Package domain defines the core domain types for botvault.
//
// Domain types are plain values without IO dependencies. This package contains:
//
//   - RedeemItem: a product key queued for background redemption
//   - Priority: the queue tier a RedeemItem is drained from
//   - Errors: structured error codes shared by every layer
package domain
