/*
Package config implements the configuration model every node operation is
evaluated against.

A Config is an immutable tree of scalars, sequences and string-keyed mappings
addressed by dot-separated paths ("A.B.C"; numeric segments index into
sequences). Values may be template strings containing {path} placeholders,
which are resolved recursively against the same configuration.

# Templates

	{A.B}      replaced by the value at path A.B
	{{ / }}    literal braces
	{:name:}   a named parameter supplied by the caller (see InterpolateWith)

A string consisting of exactly one placeholder resolves to the referenced
value with its type preserved. Any other string is rendered with the
placeholders formatted in place.

Resolution tracks the chain of paths being expanded. Revisiting a path that is
already on the chain fails with a *CycleError instead of looping; a placeholder
naming an absent path fails with a *MissingKeyError.

# Derivation

Configurations are never mutated. Set and Overlay return new configurations
built from deep copies.
*/
package config
