package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/eval"
	"github.com/aretw0/espalier/pkg/ports"
)

// Fingerprint hashes the resolved values of the paths n depends on under
// cfg, salted with namespace. Paths are hashed in sorted order, so the result
// does not depend on the order keys were reported in.
func Fingerprint(ctx context.Context, n domain.Node, cfg config.Config, namespace string) (ports.Fingerprint, error) {
	keys, err := eval.Keys(ctx, n, cfg)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	for _, path := range keys.Sorted() {
		value, err := cfg.Resolve(path)
		var encoded []byte
		switch {
		case errors.Is(err, config.ErrMissingKey):
			encoded = []byte{1}
		case err != nil:
			return "", domain.FromConfig(err, n.String())
		default:
			encoded = canonical(value)
		}
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write(encoded)
		h.Write([]byte{0})
	}
	return ports.Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// canonical encodes v as JSON, which orders map keys. Values JSON cannot
// represent fall back to their Go syntax representation.
func canonical(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf("%#v", v))
	}
	return data
}
