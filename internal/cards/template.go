// Package cards renders rich card attachments. Templates are JSON documents
// with ${field} placeholders inside string values.
package cards

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wolfman30/flymebot/internal/dialog"
)

// ContentTypeAdaptive is the attachment type of rendered templates.
const ContentTypeAdaptive = "application/vnd.microsoft.card.adaptive"

var (
	ErrUnknownPlaceholder = errors.New("cards: placeholder has no data")
	ErrMissingPlaceholder = errors.New("cards: data field has no placeholder")
	ErrInvalidTemplate    = errors.New("cards: invalid template")
	ErrInvalidData        = errors.New("cards: invalid data")
	ErrInvalidOutput      = errors.New("cards: rendered card failed validation")
)

//go:embed resources/bookedFlightCard.json
var bookedFlightCard []byte

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is a parsed card template. It is immutable and safe for
// concurrent use.
type Template struct {
	name         string
	raw          string
	fields       []string
	outputSchema map[string]any
}

// Parse validates raw as JSON and records its placeholders.
func Parse(name string, raw []byte) (*Template, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrInvalidTemplate, name)
	}
	seen := map[string]bool{}
	var fields []string
	for _, m := range placeholderRe.FindAllStringSubmatch(string(raw), -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			fields = append(fields, m[1])
		}
	}
	sort.Strings(fields)
	return &Template{name: name, raw: string(raw), fields: fields}, nil
}

// Load reads a template from disk.
func Load(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cards: read template: %w", err)
	}
	return Parse(path, raw)
}

// BookedFlight returns the embedded booking confirmation card.
func BookedFlight() *Template {
	t, err := Parse("bookedFlightCard.json", bookedFlightCard)
	if err != nil {
		panic(err)
	}
	return t
}

// WithOutputSchema returns a copy that validates every rendered card
// against a JSON schema.
func (t *Template) WithOutputSchema(schema map[string]any) *Template {
	cp := *t
	cp.outputSchema = schema
	return &cp
}

// Name identifies the template in errors.
func (t *Template) Name() string { return t.name }

// Fields lists the placeholder names in sorted order.
func (t *Template) Fields() []string {
	return append([]string(nil), t.fields...)
}

// Render substitutes data into the template. Every placeholder needs a
// value and every value needs a placeholder. Values must be strings or
// numbers; each is JSON-escaped before substitution and the result is
// re-validated as JSON.
func (t *Template) Render(data map[string]any) (json.RawMessage, error) {
	var unknown, missing []string
	for _, f := range t.fields {
		if _, ok := data[f]; !ok {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownPlaceholder, strings.Join(unknown, ", "), t.name)
	}
	for k := range data {
		if !t.has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingPlaceholder, strings.Join(missing, ", "), t.name)
	}
	if err := validate(t.dataSchema(), gojsonschema.NewGoLoader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	values := make(map[string]string, len(data))
	for k, v := range data {
		escaped, err := escape(fmt.Sprint(v))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, k, err)
		}
		values[k] = escaped
	}
	out := placeholderRe.ReplaceAllStringFunc(t.raw, func(token string) string {
		return values[placeholderRe.FindStringSubmatch(token)[1]]
	})
	if !json.Valid([]byte(out)) {
		return nil, fmt.Errorf("%w: %s does not render to valid JSON", ErrInvalidTemplate, t.name)
	}
	if t.outputSchema != nil {
		if err := validate(t.outputSchema, gojsonschema.NewStringLoader(out)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}
	return json.RawMessage(out), nil
}

// Attachment renders data and wraps it as an adaptive card attachment.
func (t *Template) Attachment(data map[string]any) (dialog.Attachment, error) {
	content, err := t.Render(data)
	if err != nil {
		return dialog.Attachment{}, err
	}
	return dialog.Attachment{ContentType: ContentTypeAdaptive, Content: content}, nil
}

func (t *Template) has(field string) bool {
	i := sort.SearchStrings(t.fields, field)
	return i < len(t.fields) && t.fields[i] == field
}

func (t *Template) dataSchema() map[string]any {
	props := make(map[string]any, len(t.fields))
	required := make([]any, 0, len(t.fields))
	for _, f := range t.fields {
		props[f] = map[string]any{"type": []any{"string", "number"}}
		required = append(required, f)
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func validate(schema map[string]any, doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), doc)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%v", errs)
	}
	return nil
}

// escape returns s as the inside of a JSON string literal.
func escape(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	quoted := strings.TrimSuffix(buf.String(), "\n")
	return quoted[1 : len(quoted)-1], nil
}
