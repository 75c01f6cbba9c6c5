package jsonschema

import (
	"strings"
	"testing"
)

const benchSchema = `{
	"type": "object",
	"properties": {
		"endpoint": { "type": "string", "minLength": 1 },
		"concurrency": { "type": "integer", "minimum": 1 },
		"repetitions": { "type": "integer", "minimum": 1 }
	},
	"required": ["endpoint"]
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		json    string
		valid   bool
		wantErr bool
	}{
		{
			name:   "valid document",
			schema: benchSchema,
			json:   `{"endpoint": "motor", "concurrency": 50, "repetitions": 3}`,
			valid:  true,
		},
		{
			name:   "missing required property",
			schema: benchSchema,
			json:   `{"concurrency": 50}`,
			valid:  false,
		},
		{
			name:   "wrong type",
			schema: benchSchema,
			json:   `{"endpoint": "motor", "concurrency": "fifty"}`,
			valid:  false,
		},
		{
			name:   "below minimum",
			schema: benchSchema,
			json:   `{"endpoint": "motor", "concurrency": 0}`,
			valid:  false,
		},
		{
			name:    "malformed document",
			schema:  benchSchema,
			json:    `{"endpoint": `,
			wantErr: true,
		},
		{
			name:    "malformed schema",
			schema:  `{"type": [`,
			json:    `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := Validate(tt.json, tt.schema)
			if tt.wantErr {
				if err == nil {
					t.Error("Validate error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Errorf("Validate unexpected error: %v", err)
				return
			}
			if valid != tt.valid {
				t.Errorf("Validate = %v, want %v", valid, tt.valid)
			}
		})
	}
}

func TestValidateWithErrors(t *testing.T) {
	valid, errs := ValidateWithErrors(`{"concurrency": "fifty"}`, benchSchema)
	if valid {
		t.Fatal("ValidateWithErrors = valid for invalid document")
	}
	if len(errs) == 0 {
		t.Fatal("ValidateWithErrors returned no errors for invalid document")
	}
	msg := errs.Error()
	if !strings.Contains(msg, "validation error at") {
		t.Errorf("errors %q should carry instance locations", msg)
	}

	valid, errs = ValidateWithErrors(`{"endpoint": "mysql"}`, benchSchema)
	if !valid {
		t.Errorf("ValidateWithErrors = invalid for valid document: %v", errs)
	}
	if len(errs) != 0 {
		t.Errorf("ValidateWithErrors returned %d errors for valid document", len(errs))
	}
}

func TestValidationErrorsEmpty(t *testing.T) {
	var ve ValidationErrors
	if ve.Error() != "" {
		t.Errorf("empty ValidationErrors.Error() = %q, want empty", ve.Error())
	}
}
