// Package codec turns packages into bytes and back. The byte format
// is opaque to the rest of the system: stages and stores only ever
// go through a Codec.
package codec

import (
	"encoding/json"
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/models"
)

type Codec interface {
	Serialize(pkg *models.Package) ([]byte, error)
	Deserialize(data []byte) (*models.Package, error)
}

// FormatError means some bytes could not be read as a package.
type FormatError struct {
	Message string
	Err     error
}

func (err *FormatError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s: %v", err.Message, err.Err)
	}
	return err.Message
}

func (err *FormatError) Unwrap() error {
	return err.Err
}

// JSONCodec serializes packages as JSON.
type JSONCodec struct {
	// Indent makes Serialize produce indented output, for packages
	// people will read.
	Indent bool
}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (c *JSONCodec) Serialize(pkg *models.Package) ([]byte, error) {
	if pkg == nil {
		return nil, fmt.Errorf("Param pkg cannot be nil.")
	}
	if c.Indent {
		return json.MarshalIndent(pkg, "", "  ")
	}
	return json.Marshal(pkg)
}

// Deserialize returns a *FormatError if data is not a JSON package
// or if its model version is missing or unsupported.
func (c *JSONCodec) Deserialize(data []byte) (*models.Package, error) {
	if len(data) == 0 {
		return nil, &FormatError{Message: "Package data is empty"}
	}
	pkg := &models.Package{}
	if err := json.Unmarshal(data, pkg); err != nil {
		return nil, &FormatError{Message: "Package data is not valid JSON", Err: err}
	}
	if pkg.ModelVersion == "" {
		return nil, &FormatError{Message: "Package has no model_version"}
	}
	if pkg.ModelVersion != constants.ModelVersion {
		return nil, &FormatError{
			Message: fmt.Sprintf("Unsupported model version %s, expected %s",
				pkg.ModelVersion, constants.ModelVersion),
		}
	}
	return pkg, nil
}
