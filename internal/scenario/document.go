package scenario

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactobj/internal/errors"
	"github.com/vango-dev/reactobj/pkg/valuetree"
)

// LoadDocument reads an initial document. Files ending in .json are decoded
// as JSON, anything else as YAML. The top level must be a map or sequence.
func LoadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("R030").Wrap(err)
	}
	doc, err := DecodeDocument(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, errors.FromError(err, "R030").WithDetail("Failed to decode " + path)
	}
	return doc, nil
}

// DecodeDocument decodes JSON or YAML into a value tree.
func DecodeDocument(data []byte, isJSON bool) (any, error) {
	var doc any
	if isJSON {
		decoder := json.NewDecoder(bytes.NewReader(data))
		if err := decoder.Decode(&doc); err != nil {
			return nil, errors.New("R030").Wrap(err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("R030").Wrap(err)
	}

	if !valuetree.IsContainer(doc) {
		return nil, errors.New("R030").
			WithSuggestion("Wrap the value in an object, e.g. {value: ...}")
	}
	return doc, nil
}
