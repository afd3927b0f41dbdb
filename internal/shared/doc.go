// Package shared holds helpers used across demoreport packages.
//
// The testutil subpackage provides a capturing slog handler and the sample
// match fixture used by the sheets and export tests.
package shared
