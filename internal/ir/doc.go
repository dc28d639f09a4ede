// Package ir provides the data model shared by every fixrun package.
//
// This package contains plain value types and their canonical encoding.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Fixture IDs are slash-separated paths relative to the search root
//   - Assertion names are NFC normalized and unique within a fixture
//   - No entity outlives a single harness invocation
//   - All JSON tags use snake_case
package ir
