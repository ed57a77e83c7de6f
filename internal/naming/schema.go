// Package naming translates rows between the remote snake_case field naming
// and the application camelCase naming. Each entity declares one Schema; the
// translation runs at remote ingress (ToApp) and remote egress (ToRemote).
package naming

// Field maps one application field to its remote column. An empty Remote marks
// an application-only field (assembled from child tables) that is never sent.
type Field struct {
	App    string
	Remote string
	Nested *Schema
}

// F declares a plain field.
func F(app, remote string) Field {
	return Field{App: app, Remote: remote}
}

// Nest declares a field whose value is an object, or a list of objects, with its own schema.
func Nest(app, remote string, schema *Schema) Field {
	return Field{App: app, Remote: remote, Nested: schema}
}

// AppOnly declares a field that exists only in the application representation.
func AppOnly(app string) Field {
	return Field{App: app}
}

// Schema is the field-mapping table of one entity.
type Schema struct {
	fields   []Field
	byApp    map[string]Field
	byRemote map[string]Field
}

// NewSchema builds a schema from its fields.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields:   fields,
		byApp:    make(map[string]Field, len(fields)),
		byRemote: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		s.byApp[f.App] = f
		if f.Remote != "" {
			s.byRemote[f.Remote] = f
		}
	}
	return s
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// ToApp renames the keys of a remote row to application naming. Keys already in
// application naming are kept, so the call is idempotent, and win over their
// remote spelling when a row carries both. Unknown keys pass through.
func (s *Schema) ToApp(row map[string]any) map[string]any {
	if row == nil {
		return nil
	}
	out := make(map[string]any, len(row))
	for k, v := range row {
		f, ok := s.byRemote[k]
		if ok && f.App != k {
			if _, dup := row[f.App]; dup {
				continue
			}
		}
		if !ok {
			f, ok = s.byApp[k]
		}
		if !ok {
			out[k] = v
			continue
		}
		out[f.App] = convert(v, f.Nested, (*Schema).ToApp)
	}
	return out
}

// ToRemote renames the keys of an application object to remote naming and drops
// application-only fields. Keys already in remote naming are kept and win over
// their application spelling. Unknown keys pass through.
func (s *Schema) ToRemote(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		f, ok := s.byApp[k]
		if ok && f.Remote != "" && f.Remote != k {
			if _, dup := obj[f.Remote]; dup {
				continue
			}
		}
		if !ok {
			f, ok = s.byRemote[k]
		}
		if !ok {
			out[k] = v
			continue
		}
		if f.Remote == "" {
			continue
		}
		out[f.Remote] = convert(v, f.Nested, (*Schema).ToRemote)
	}
	return out
}

func convert(v any, nested *Schema, fn func(*Schema, map[string]any) map[string]any) any {
	if nested == nil {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		return fn(nested, t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			if m, ok := item.(map[string]any); ok {
				out[i] = fn(nested, m)
			} else {
				out[i] = item
			}
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = fn(nested, m)
		}
		return out
	default:
		return v
	}
}
