package domain

// Explanation is the result of Node.Explain. Exactly one of the two fields is
// meaningful: Keys when the node's dependencies could be determined, or
// Insufficient when they could not.
type Explanation struct {
	Keys         KeySet                        `json:"keys,omitempty"`
	Insufficient *InsufficientInformationError `json:"-"`
}

// Explained wraps a key set.
func Explained(keys KeySet) Explanation {
	if keys == nil {
		keys = KeySet{}
	}
	return Explanation{Keys: keys}
}

// Unexplained reports that source cannot be explained without more
// information.
func Unexplained(reason, source string) Explanation {
	return Explanation{Insufficient: &InsufficientInformationError{Reason: reason, Source: source}}
}

// Sufficient reports whether the explanation carries a key set.
func (e Explanation) Sufficient() bool {
	return e.Insufficient == nil
}

// Err returns the insufficient-information marker as an error, or nil.
func (e Explanation) Err() error {
	if e.Insufficient == nil {
		return nil
	}
	return e.Insufficient
}

// Merge combines two explanations. The result is insufficient if either side
// is, keeping the first marker found.
func (e Explanation) Merge(other Explanation) Explanation {
	if !e.Sufficient() {
		return e
	}
	if !other.Sufficient() {
		return other
	}
	return Explained(e.Keys.Union(other.Keys))
}
