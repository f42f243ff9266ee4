// Package agent runs account databases inside a long-lived process.
//
// A Registry owns one botdb.Database per account. The Maintainer sweeps
// expired entries on a ticker and, when a Drainer is attached, works through
// each account's redemption queue at a limited rate.
package agent
