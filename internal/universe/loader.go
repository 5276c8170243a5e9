package universe

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/sectorfolio/internal/contracts"
)

//go:embed universe.yaml
var defaultYAML []byte

// Load reads the universe from path, or the embedded default when path is empty.
// KnownFields(true): typos and unused fields fail immediately.
func Load(path string) (*contracts.Universe, error) {
	data := defaultYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read universe %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Default returns the embedded universe
func Default() *contracts.Universe {
	u, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded universe is invalid: %v", err))
	}
	return u
}

// Parse decodes and validates a universe document
func Parse(data []byte) (*contracts.Universe, error) {
	var u contracts.Universe
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode universe: %w", err)
	}

	if err := Validate(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Hash returns the SHA256 of the canonical JSON form; stored with each purchase plan
func Hash(u *contracts.Universe) (string, error) {
	jsonBytes, err := json.Marshal(u)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
