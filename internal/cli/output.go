package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/espalier/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Print.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Print writes v to w in format.
func Print(w io.Writer, format string, v any) error {
	switch format {
	case "", OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// ExplanationView is the printable form of an explanation.
type ExplanationView struct {
	Sufficient bool     `json:"sufficient" yaml:"sufficient"`
	Keys       []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ViewExplanation converts e for Print.
func ViewExplanation(e domain.Explanation) ExplanationView {
	if !e.Sufficient() {
		return ExplanationView{Reason: e.Err().Error()}
	}
	return ExplanationView{Sufficient: true, Keys: e.Keys.Sorted()}
}
