package cachelayer

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/samas-it-services/smart-search/pkg/smartsearch/types"
)

// schemaVersion is the 1-byte prefix written ahead of every serialized
// envelope, per spec.md §6 ("a self-describing encoding with a 1-byte
// schema version prefix"). Bumping it lets a rolling deploy treat
// entries written by a newer schema as misses instead of corrupt data.
const schemaVersion byte = 1

// ErrUnknownSchema is returned by Decode when the stored entry's
// schema version prefix isn't one this build understands. Per
// spec.md §6 this must be treated as a miss, not a hard error.
var ErrUnknownSchema = errors.New("cachelayer: unknown schema version")

// Encode serializes env into the cache wire format.
func Encode(env types.ResultEnvelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, schemaVersion)
	out = append(out, body...)
	return out, nil
}

// Decode deserializes raw into a ResultEnvelope. It returns
// ErrUnknownSchema if the version prefix doesn't match schemaVersion.
func Decode(raw []byte) (types.ResultEnvelope, error) {
	var env types.ResultEnvelope
	if len(raw) < 1 {
		return env, errors.New("cachelayer: empty entry")
	}
	if raw[0] != schemaVersion {
		return env, ErrUnknownSchema
	}
	if err := json.Unmarshal(raw[1:], &env); err != nil {
		return env, errors.Wrap(err, "unmarshal envelope")
	}
	return env, nil
}
