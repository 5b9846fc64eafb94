package types

import (
	"encoding/json"
	"fmt"

	"geofabric/pkg/errs"
)

// FeatureValue is a closed, tagged variant over the six feature value kinds
// the wire format supports. It is never exposed as a bare interface{} bag;
// callers ask for the kind they expect and get a ValidationError back on
// mismatch instead of a failed type assertion.
type FeatureValue struct {
	kind   FeatureKind
	i      int64
	f      float64
	s      string
	bytes  []byte
}

func NewInt(v int32) FeatureValue    { return FeatureValue{kind: KindInt, i: int64(v)} }
func NewLong(v int64) FeatureValue   { return FeatureValue{kind: KindLong, i: v} }
func NewFloat(v float32) FeatureValue {
	return FeatureValue{kind: KindFloat, f: float64(v)}
}
func NewDouble(v float64) FeatureValue { return FeatureValue{kind: KindDouble, f: v} }
func NewString(v string) FeatureValue  { return FeatureValue{kind: KindString, s: v} }
func NewBytes(v []byte) FeatureValue   { return FeatureValue{kind: KindBytes, bytes: v} }

// Kind reports which variant a value holds.
func (v FeatureValue) Kind() FeatureKind { return v.kind }

func (v FeatureValue) AsInt() (int32, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("feature value is %v, not INT: %w", v.kind, errs.ErrValidation)
	}
	return int32(v.i), nil
}

func (v FeatureValue) AsLong() (int64, error) {
	if v.kind != KindLong {
		return 0, fmt.Errorf("feature value is %v, not LONG: %w", v.kind, errs.ErrValidation)
	}
	return v.i, nil
}

func (v FeatureValue) AsFloat() (float32, error) {
	if v.kind != KindFloat {
		return 0, fmt.Errorf("feature value is %v, not FLOAT: %w", v.kind, errs.ErrValidation)
	}
	return float32(v.f), nil
}

func (v FeatureValue) AsDouble() (float64, error) {
	if v.kind != KindDouble {
		return 0, fmt.Errorf("feature value is %v, not DOUBLE: %w", v.kind, errs.ErrValidation)
	}
	return v.f, nil
}

func (v FeatureValue) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("feature value is %v, not STRING: %w", v.kind, errs.ErrValidation)
	}
	return v.s, nil
}

func (v FeatureValue) AsBytes() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, fmt.Errorf("feature value is %v, not BYTES: %w", v.kind, errs.ErrValidation)
	}
	return v.bytes, nil
}

// String renders the value for logging, regardless of kind.
func (v FeatureValue) String() string {
	switch v.kind {
	case KindInt, KindLong:
		return fmt.Sprintf("%d", v.i)
	case KindFloat, KindDouble:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.bytes)
	default:
		return "<unknown>"
	}
}

// featureValueWire is the on-the-wire (and on-disk) shape of a
// FeatureValue: a kind tag plus whichever single field that kind fills in.
type featureValueWire struct {
	Kind   string   `json:"kind"`
	Int    *int32   `json:"int,omitempty"`
	Long   *int64   `json:"long,omitempty"`
	Float  *float32 `json:"float,omitempty"`
	Double *float64 `json:"double,omitempty"`
	String *string  `json:"string,omitempty"`
	Bytes  []byte   `json:"bytes,omitempty"`
}

func (v FeatureValue) MarshalJSON() ([]byte, error) {
	w := featureValueWire{Kind: v.kind.String()}
	switch v.kind {
	case KindInt:
		i := int32(v.i)
		w.Int = &i
	case KindLong:
		l := v.i
		w.Long = &l
	case KindFloat:
		f := float32(v.f)
		w.Float = &f
	case KindDouble:
		d := v.f
		w.Double = &d
	case KindString:
		s := v.s
		w.String = &s
	case KindBytes:
		w.Bytes = v.bytes
	}
	return json.Marshal(w)
}

func (v *FeatureValue) UnmarshalJSON(data []byte) error {
	var w featureValueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("feature value: %w: %w", err, errs.ErrSerialization)
	}
	switch w.Kind {
	case "INT":
		if w.Int == nil {
			return fmt.Errorf("feature value: kind INT missing int field: %w", errs.ErrSerialization)
		}
		*v = NewInt(*w.Int)
	case "LONG":
		if w.Long == nil {
			return fmt.Errorf("feature value: kind LONG missing long field: %w", errs.ErrSerialization)
		}
		*v = NewLong(*w.Long)
	case "FLOAT":
		if w.Float == nil {
			return fmt.Errorf("feature value: kind FLOAT missing float field: %w", errs.ErrSerialization)
		}
		*v = NewFloat(*w.Float)
	case "DOUBLE":
		if w.Double == nil {
			return fmt.Errorf("feature value: kind DOUBLE missing double field: %w", errs.ErrSerialization)
		}
		*v = NewDouble(*w.Double)
	case "STRING":
		if w.String == nil {
			return fmt.Errorf("feature value: kind STRING missing string field: %w", errs.ErrSerialization)
		}
		*v = NewString(*w.String)
	case "BYTES":
		*v = NewBytes(w.Bytes)
	default:
		return fmt.Errorf("feature value: unknown kind %q: %w", w.Kind, errs.ErrSerialization)
	}
	return nil
}

func (k FeatureKind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindLong:
		return "LONG"
	case KindFloat:
		return "FLOAT"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindBytes:
		return "BYTES"
	default:
		return "UNKNOWN"
	}
}
