package rpcserver

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/generator"
	"github.com/xtding233/fastbinomial/internal/shape"
	"github.com/xtding233/fastbinomial/internal/stats"
)

// Request and response field names.
const (
	fieldProfile  = "profile"
	fieldN        = "n"
	fieldNShape   = "n_shape"
	fieldP        = "p"
	fieldPShape   = "p_shape"
	fieldTrials   = "trials"
	fieldSamples  = "samples"
	fieldShape    = "shape"
	fieldMean     = "mean"
	fieldVariance = "variance"
	fieldStdDev   = "stddev"
	fieldP50      = "p50"
	fieldP90      = "p90"
	fieldP99      = "p99"
)

// maxExactInt is the largest integer a protobuf number holds exactly.
const maxExactInt = 1 << 53

var errMalformed = fmt.Errorf("%w: malformed request", errkind.ErrConfiguration)

func field(st *structpb.Struct, name string) *structpb.Value {
	if st == nil {
		return nil
	}
	v, ok := st.GetFields()[name]
	if !ok {
		return nil
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil
	}
	return v
}

func decodeProfile(st *structpb.Struct) (string, error) {
	v := field(st, fieldProfile)
	if v == nil {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errMalformed, fieldProfile)
	}
	return s.StringValue, nil
}

func decodeInt(v *structpb.Value, what string) (int64, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", errMalformed, what)
	}
	f := num.NumberValue
	if math.IsNaN(f) || math.Trunc(f) != f || math.Abs(f) > maxExactInt {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", errMalformed, what, f)
	}
	return int64(f), nil
}

func decodeFloat(v *structpb.Value, what string) (float64, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", errMalformed, what)
	}
	return num.NumberValue, nil
}

func decodeShape(st *structpb.Struct, name string) (shape.Shape, error) {
	v := field(st, name)
	if v == nil {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", errMalformed, name)
	}
	s := make(shape.Shape, len(list.ListValue.GetValues()))
	for i, d := range list.ListValue.GetValues() {
		x, err := decodeInt(d, fmt.Sprintf("%s[%d]", name, i))
		if err != nil {
			return nil, err
		}
		s[i] = int(x)
	}
	return s, s.Validate()
}

// decodeCounts reads n and its optional shape. The element count is checked
// against maxElements before anything is allocated for it.
func decodeCounts(st *structpb.Struct, maxElements int) (generator.Counts, error) {
	v := field(st, fieldN)
	if v == nil {
		return generator.Counts{}, fmt.Errorf("%w: %s is required", errMalformed, fieldN)
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		if field(st, fieldNShape) != nil {
			return generator.Counts{}, fmt.Errorf("%w: %s given for a scalar n", errMalformed, fieldNShape)
		}
		n, err := decodeInt(v, fieldN)
		return generator.ScalarN(n), err
	}
	values := list.ListValue.GetValues()
	if len(values) > maxElements {
		return generator.Counts{}, &limitError{what: fieldN, got: len(values), limit: maxElements}
	}
	s, err := decodeShape(st, fieldNShape)
	if err != nil {
		return generator.Counts{}, err
	}
	ns := make([]int64, len(values))
	for i, x := range values {
		if ns[i], err = decodeInt(x, fmt.Sprintf("%s[%d]", fieldN, i)); err != nil {
			return generator.Counts{}, err
		}
	}
	return generator.ArrayN(ns, s), nil
}

// decodeProbs reads the optional p. Absent or null means the cached p.
func decodeProbs(st *structpb.Struct, maxElements int) (generator.Probs, error) {
	v := field(st, fieldP)
	if v == nil {
		if field(st, fieldPShape) != nil {
			return generator.Probs{}, fmt.Errorf("%w: %s given without %s", errMalformed, fieldPShape, fieldP)
		}
		return generator.NoP(), nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		if field(st, fieldPShape) != nil {
			return generator.Probs{}, fmt.Errorf("%w: %s given for a scalar p", errMalformed, fieldPShape)
		}
		p, err := decodeFloat(v, fieldP)
		return generator.ScalarP(p), err
	}
	values := list.ListValue.GetValues()
	if len(values) > maxElements {
		return generator.Probs{}, &limitError{what: fieldP, got: len(values), limit: maxElements}
	}
	s, err := decodeShape(st, fieldPShape)
	if err != nil {
		return generator.Probs{}, err
	}
	ps := make([]float64, len(values))
	for i, x := range values {
		if ps[i], err = decodeFloat(x, fmt.Sprintf("%s[%d]", fieldP, i)); err != nil {
			return generator.Probs{}, err
		}
	}
	return generator.ArrayP(ps, s), nil
}

func encodeShape(s shape.Shape) *structpb.Value {
	dims := make([]*structpb.Value, len(s))
	for i, d := range s {
		dims[i] = structpb.NewNumberValue(float64(d))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: dims})
}

func encodeResult(r generator.Result) *structpb.Struct {
	if !r.IsArray {
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			fieldSamples: structpb.NewNumberValue(float64(r.Scalar)),
			fieldShape:   encodeShape(shape.Shape{}),
		}}
	}
	samples := make([]*structpb.Value, len(r.Data))
	for i, k := range r.Data {
		samples[i] = structpb.NewNumberValue(float64(k))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldSamples: structpb.NewListValue(&structpb.ListValue{Values: samples}),
		fieldShape:   encodeShape(r.Shape),
	}}
}

func encodeStats(s stats.Stats) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTrials:   structpb.NewNumberValue(float64(s.Trials)),
		fieldMean:     structpb.NewNumberValue(s.Mean),
		fieldVariance: structpb.NewNumberValue(s.Var),
		fieldStdDev:   structpb.NewNumberValue(s.StdDev),
		fieldP50:      structpb.NewNumberValue(s.P50),
		fieldP90:      structpb.NewNumberValue(s.P90),
		fieldP99:      structpb.NewNumberValue(s.P99),
	}}
}

// limitError reports a request larger than the profile allows.
type limitError struct {
	what  string
	got   int
	limit int
}

func (e *limitError) Error() string {
	return fmt.Sprintf("%s has %d elements, limit is %d", e.what, e.got, e.limit)
}
