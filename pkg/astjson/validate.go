package astjson

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaFS contains the embedded wire format JSON schema.
//
//go:embed schema/wire.schema.json
var SchemaFS embed.FS

// schemaPath is the schema location inside SchemaFS.
const schemaPath = "schema/wire.schema.json"

// ErrSchemaViolation is returned when a document does not match the schema.
var ErrSchemaViolation = errors.New("document violates the wire schema")

// Violation is one schema error.
type Violation struct {
	Field       string
	Description string
}

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Violations []Violation
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Violations))

	for _, v := range ve.Violations {
		parts = append(parts, v.Field+": "+v.Description)
	}

	return fmt.Sprintf("%s: %s", ErrSchemaViolation, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrSchemaViolation.
func (ve *ValidationError) Unwrap() error {
	return ErrSchemaViolation
}

// Schema returns the embedded schema document.
func Schema() ([]byte, error) {
	data, err := SchemaFS.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	return data, nil
}

// Validate checks data against the embedded schema. A document that is not
// JSON fails with a decode error; a schema mismatch fails with a
// *ValidationError.
func Validate(data []byte) error {
	schemaData, err := Schema()
	if err != nil {
		return err
	}

	var document any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	err = dec.Decode(&document)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}

	for _, re := range result.Errors() {
		verr.Violations = append(verr.Violations, Violation{
			Field:       re.Field(),
			Description: re.Description(),
		})
	}

	return verr
}
