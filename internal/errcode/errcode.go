// Package errcode defines the typed failure values the core surfaces to
// callers and plugins.
package errcode

import "fmt"

// Code identifies the kind of failure.
type Code string

const (
	UnknownOption          Code = "UNKNOWN_OPTION"
	InvalidOption          Code = "INVALID_OPTION"
	MissingOption          Code = "MISSING_OPTION"
	DeprecatedOptions      Code = "DEPRECATED_OPTIONS"
	MissingOutputOption    Code = "MISSING_OUTPUT_OPTION"
	UnsupportedLegacyOpt   Code = "UNSUPPORTED_LEGACY_OPTION"
	FormatRequired         Code = "FORMAT_REQUIRED"
	FormatDeprecated       Code = "FORMAT_DEPRECATED"
	ConflictingOption      Code = "CONFLICTING_OPTION"
	AssetFinalized         Code = "ASSET_FINALIZED"
	UnknownAsset           Code = "UNKNOWN_ASSET"
	AssetSourceMissing     Code = "ASSET_SOURCE_MISSING"
	PluginError            Code = "PLUGIN_ERROR"
)

// Pos is a 0-based position into a source.
type Pos struct {
	Line   int
	Column int
}

// Error is the failure value carried through the core: a code, a message,
// and the optional url/plugin/pos/loc/frame attribution callers can inspect.
type Error struct {
	Code    Code
	Message string
	URL     string
	Plugin  string
	Pos     *Pos
	Loc     string
	Frame   string

	// Wrapped is the original error when this wraps a plugin-thrown value
	// (Code == PluginError) or another Go error.
	Wrapped error
}

func (e *Error) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Plugin, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds a plain, plugin-less error of the given code.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromPlugin wraps an error thrown by a plugin hook as PLUGIN_ERROR, unless
// it is already a *Error, in which case it is passed through untouched so
// that a plugin that returns a structured core error keeps its original code.
func FromPlugin(pluginName string, err error) *Error {
	if err == nil {
		return nil
	}
	if existing, ok := err.(*Error); ok {
		if existing.Plugin == "" {
			existing.Plugin = pluginName
		}
		return existing
	}
	return &Error{
		Code:    PluginError,
		Message: err.Error(),
		Plugin:  pluginName,
		Wrapped: err,
	}
}
