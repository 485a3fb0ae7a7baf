package predict

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
)

// Validation messages returned in the "detail" field.
const (
	DetailRequired   = "semesters and cpi arrays are required"
	DetailMismatch   = "semesters and cpi arrays must be the same length"
	DetailNonNumeric = "semesters and cpi must be numeric lists"
	DetailMalformed  = "invalid request body"
	DetailTooLarge   = "request body too large"
)

// Request is the POST /predict body. Fields are kept raw so that absent,
// null and mistyped values can be told apart during validation.
type Request struct {
	Semesters json.RawMessage `json:"semesters"`
	CPI       json.RawMessage `json:"cpi"`
	CPIValues json.RawMessage `json:"cpi_values"`
}

// Response is the successful POST /predict body.
type Response struct {
	Ans  float64 `json:"ans"`
	Plot string  `json:"plot"`
}

// ValidationError is a request refused before prediction.
type ValidationError struct {
	Reason coremetrics.RejectionReason
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

func reject(reason coremetrics.RejectionReason, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

// Series returns the CPI values, preferring "cpi" over "cpi_values".
func (r Request) Series() json.RawMessage {
	if !isNull(r.CPI) {
		return r.CPI
	}
	return r.CPIValues
}

// Validate checks presence, then length, then numeric content, and returns
// the coerced series.
func (r Request) Validate() (semesters, cpi []float64, err *ValidationError) {
	rawSem, rawCPI := r.Semesters, r.Series()
	if isNull(rawSem) || isNull(rawCPI) {
		return nil, nil, reject(coremetrics.ReasonMissing, DetailRequired)
	}

	semItems, semList := splitList(rawSem)
	cpiItems, cpiList := splitList(rawCPI)
	if (semList && len(semItems) == 0) || (cpiList && len(cpiItems) == 0) {
		return nil, nil, reject(coremetrics.ReasonMissing, DetailRequired)
	}
	if !semList || !cpiList {
		return nil, nil, reject(coremetrics.ReasonNonNumeric, DetailNonNumeric)
	}
	if len(semItems) != len(cpiItems) {
		return nil, nil, reject(coremetrics.ReasonMismatch, DetailMismatch)
	}

	semesters, ok := coerceAll(semItems)
	if !ok {
		return nil, nil, reject(coremetrics.ReasonNonNumeric, DetailNonNumeric)
	}
	cpi, ok = coerceAll(cpiItems)
	if !ok {
		return nil, nil, reject(coremetrics.ReasonNonNumeric, DetailNonNumeric)
	}
	return semesters, cpi, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func splitList(raw json.RawMessage) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func coerceAll(items []json.RawMessage) ([]float64, bool) {
	out := make([]float64, len(items))
	for i, it := range items {
		v, ok := coerce(it)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// coerce accepts a JSON number or a string holding one. The result must be
// finite.
func coerce(raw json.RawMessage) (float64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
