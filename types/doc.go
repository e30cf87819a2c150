// Package types provides the core records shared across the questhive engine.
// This package has ZERO dependencies on other questhive packages to avoid
// circular imports. All other packages should import types from here.
package types
