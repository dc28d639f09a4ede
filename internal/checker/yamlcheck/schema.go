package yamlcheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SchemaID is the $id of the fixture schema.
const SchemaID = "https://github.com/roach88/fixrun/schemas/yaml-fixture-v1.json"

// Fixture is one YAML fixture file.
type Fixture struct {
	Description string         `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=What the fixture checks"`
	Vars        map[string]any `yaml:"vars,omitempty"        json:"vars,omitempty"        jsonschema:"description=Variables visible to every expression"`
	Tests       []Test         `yaml:"tests"                 json:"tests"                 jsonschema:"description=Assertions in evaluation order"`
}

// Test is one assertion of a fixture.
type Test struct {
	Name    string `yaml:"name"              json:"name"              jsonschema:"minLength=1"`
	Expect  string `yaml:"expect"            json:"expect"            jsonschema:"minLength=1,description=Boolean expr-lang expression"`
	Message string `yaml:"message,omitempty" json:"message,omitempty" jsonschema:"description=Failure message"`
}

// GenerateJSONSchema produces the JSON Schema of the fixture format from
// the Fixture struct.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Fixture{})
	s.ID = SchemaID
	s.Title = "fixrun YAML fixture v1"
	s.Description = "Declarative assertions evaluated with expr-lang"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

var (
	compileOnce sync.Once
	compiled    *sjsonschema.Schema
	compileErr  error
)

// compiledSchema compiles the generated schema once per process.
func compiledSchema() (*sjsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := GenerateJSONSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(SchemaID)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// SchemaError lists every violation of the fixture schema.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "invalid fixture: " + strings.Join(e.Violations, "; ")
}

var printer = message.NewPrinter(language.English)

// validate checks a decoded YAML document against the fixture schema.
func validate(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	// Round trip through JSON so numbers and maps have the shapes the
	// validator expects.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert fixture: %w", err)
	}
	inst, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("convert fixture: %w", err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return err
	}

	var violations []string
	for _, cause := range flattenValidationErrors(ve) {
		at := "/" + strings.Join(cause.InstanceLocation, "/")
		violations = append(violations, fmt.Sprintf("at '%s': %s", at, cause.ErrorKind.LocalizedString(printer)))
	}
	sort.Strings(violations)
	return &SchemaError{Violations: violations}
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
