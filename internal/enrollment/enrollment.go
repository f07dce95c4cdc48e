// Package enrollment tracks the data a prospective student has given while
// enrolling through the sales agent. Values are validated on entry and
// invalid ones are never stored.
package enrollment

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// Field identifies one piece of enrollment data.
type Field string

const (
	FieldProgram  Field = "program"
	FieldGroup    Field = "group"
	FieldFullName Field = "full_name"
	FieldIDNumber Field = "id_number"
	FieldPhone    Field = "phone"
	FieldEmail    Field = "email"
)

// Fields lists every field in the order they are requested from the user.
var Fields = []Field{FieldProgram, FieldGroup, FieldFullName, FieldIDNumber, FieldPhone, FieldEmail}

var labels = map[Field]string{
	FieldProgram:  "carrera",
	FieldGroup:    "grupo",
	FieldFullName: "nombres completos",
	FieldIDNumber: "cédula",
	FieldPhone:    "teléfono",
	FieldEmail:    "correo electrónico",
}

// Label is the user-facing name of the field.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// ParseField accepts either the field key or its label.
func ParseField(s string) (Field, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range Fields {
		if s == string(f) || s == labels[f] {
			return f, true
		}
	}
	return "", false
}

var (
	ErrInvalidPhone    = errors.New("el teléfono debe tener el formato +593XXXXXXXXX")
	ErrInvalidEmail    = errors.New("el correo electrónico no es válido")
	ErrInvalidIDNumber = errors.New("la cédula debe tener 10 dígitos")
	ErrInvalidName     = errors.New("ingresa nombres y apellidos")
	ErrEmptyValue      = errors.New("el valor está vacío")
)

var (
	phoneRe     = regexp.MustCompile(`^\+593\d{9}$`)
	idNumberRe  = regexp.MustCompile(`^\d{10}$`)
	phoneStrip  = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	spaceSquash = regexp.MustCompile(`\s+`)
)

// Normalize validates value for field and returns its canonical form.
func Normalize(f Field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmptyValue
	}
	switch f {
	case FieldPhone:
		v := phoneStrip.Replace(value)
		if !phoneRe.MatchString(v) {
			return "", ErrInvalidPhone
		}
		return v, nil
	case FieldEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value || addr.Name != "" {
			return "", ErrInvalidEmail
		}
		at := strings.LastIndex(value, "@")
		if at < 1 || !strings.Contains(value[at+1:], ".") || strings.HasSuffix(value, ".") {
			return "", ErrInvalidEmail
		}
		return strings.ToLower(value), nil
	case FieldIDNumber:
		if !idNumberRe.MatchString(value) {
			return "", ErrInvalidIDNumber
		}
		return value, nil
	case FieldFullName:
		v := spaceSquash.ReplaceAllString(value, " ")
		if len(strings.Fields(v)) < 2 {
			return "", ErrInvalidName
		}
		return v, nil
	default:
		return value, nil
	}
}

// Rejection records a value that was discarded.
type Rejection struct {
	Field  Field
	Value  string
	Reason string
}

// Reject builds a Rejection from a validation error.
func Reject(f Field, value string, err error) Rejection {
	return Rejection{Field: f, Value: value, Reason: err.Error()}
}

// Progress is the enrollment data captured so far for one conversation.
// It is not safe for concurrent use; the owning memory session serializes
// access.
type Progress struct {
	ProgramID int
	values    map[Field]string
}

// Active reports whether an enrollment was started.
func (p *Progress) Active() bool {
	return len(p.values) > 0
}

// Value returns the stored value for f.
func (p *Progress) Value(f Field) (string, bool) {
	v, ok := p.values[f]
	return v, ok
}

// Set validates and stores a single value.
func (p *Progress) Set(f Field, value string) error {
	v, err := Normalize(f, value)
	if err != nil {
		return err
	}
	if p.values == nil {
		p.values = make(map[Field]string, len(Fields))
	}
	p.values[f] = v
	return nil
}

// Apply stores every valid value and returns the rejected ones in field order.
// A rejected value never overwrites a previously stored one.
func (p *Progress) Apply(values map[Field]string) []Rejection {
	var rejected []Rejection
	for _, f := range Fields {
		v, ok := values[f]
		if !ok {
			continue
		}
		if err := p.Set(f, v); err != nil {
			rejected = append(rejected, Reject(f, v, err))
		}
	}
	return rejected
}

// Pending returns the fields still missing, in request order.
func (p *Progress) Pending() []Field {
	var out []Field
	for _, f := range Fields {
		if _, ok := p.values[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Complete reports whether every field has a value.
func (p *Progress) Complete() bool {
	return len(p.Pending()) == 0
}

// Values returns a copy of the stored values.
func (p *Progress) Values() map[Field]string {
	out := make(map[Field]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Unset forgets the value of f.
func (p *Progress) Unset(f Field) {
	delete(p.values, f)
}

// Reset clears all captured data.
func (p *Progress) Reset() {
	p.values = nil
	p.ProgramID = 0
}

// Summary renders the captured fields, the pending fields and the reasons
// for any rejected values.
func (p *Progress) Summary(rejected []Rejection) string {
	var b strings.Builder
	var filled []string
	for _, f := range Fields {
		if v, ok := p.values[f]; ok {
			filled = append(filled, fmt.Sprintf("- %s: %s", f.Label(), v))
		}
	}
	if len(filled) > 0 {
		b.WriteString("Datos registrados:\n")
		b.WriteString(strings.Join(filled, "\n"))
		b.WriteString("\n")
	}
	if pending := p.Pending(); len(pending) > 0 {
		names := make([]string, len(pending))
		for i, f := range pending {
			names[i] = f.Label()
		}
		fmt.Fprintf(&b, "Datos pendientes: %s\n", strings.Join(names, ", "))
	} else {
		b.WriteString("Todos los datos están completos.\n")
	}
	for _, r := range rejected {
		fmt.Fprintf(&b, "No se registró %s %q: %s.\n", r.Field.Label(), r.Value, r.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
