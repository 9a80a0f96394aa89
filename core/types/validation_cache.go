package types

import (
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
)

// validatorCache caches compiled validators by schema hash.
type validatorCache struct {
	arc *lru.ARCCache
}

func newValidatorCache(maxSize int) *validatorCache {
	arc, err := lru.NewARC(maxSize)
	if err != nil {
		return nil
	}
	return &validatorCache{arc: arc}
}

func (c *validatorCache) get(schemaHash string) (*jsonschema.Schema, bool) {
	v, ok := c.arc.Get(schemaHash)
	if !ok {
		return nil, false
	}
	return v.(*jsonschema.Schema), true
}

func (c *validatorCache) put(schemaHash string, validator *jsonschema.Schema) {
	c.arc.Add(schemaHash, validator)
}

// hashSchema computes the BLAKE2b-256 hash of the schema's JSON encoding.
// encoding/json sorts map keys, so equal schemas hash equally.
func hashSchema(schema JSONSchema) (string, []byte, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return "", nil, err
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), b, nil
}
