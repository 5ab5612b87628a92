package edgelog

// Arg is a call-site argument to a level method. It is one of Fields,
// ErrorValue or RawValue.
type Arg interface {
	isArg()
}

// Fields are structured key/value pairs spread into the event fields.
type Fields map[string]any

// ErrorValue carries an error that is decomposed into message, stack and
// name fields.
type ErrorValue struct {
	Err error
}

// RawValue is any other value. It is stored under fields["args"].
type RawValue struct {
	Value any
}

func (Fields) isArg()     {}
func (ErrorValue) isArg() {}
func (RawValue) isArg()   {}

// Err wraps err as an Arg.
func Err(err error) ErrorValue { return ErrorValue{Err: err} }

// Raw wraps v as an Arg.
func Raw(v any) RawValue { return RawValue{Value: v} }

func (f Fields) clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// merge returns a copy of f overlaid with other; other wins on conflict.
func (f Fields) merge(other Fields) Fields {
	if len(f) == 0 && len(other) == 0 {
		return nil
	}
	out := make(Fields, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
