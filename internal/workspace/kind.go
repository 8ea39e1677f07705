package workspace

// Kind classifies a file for reference scanning.
// The kind determines which acceptance rule the token scanner applies.
type Kind int

const (
	// KindUnknown means the file is not eligible for scanning.
	KindUnknown Kind = iota

	// KindConfig is an INI-style configuration file that can declare sections.
	KindConfig

	// KindScript is a scripting-language source file; occurrences must be
	// quote-bounded.
	KindScript

	// KindTypedScript is a superset-typed script source; occurrences may also
	// be backtick-bounded.
	KindTypedScript

	// KindText is free text or markup; occurrences are accepted
	// unconditionally.
	KindText
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindScript:
		return "script"
	case KindTypedScript:
		return "typedscript"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Scannable reports whether files of this kind participate in reference
// scanning.
func (k Kind) Scannable() bool {
	return k != KindUnknown
}
