package pipeline

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"sync"
)

// DiagnosticKind classifies a non-fatal analysis condition.
type DiagnosticKind int

const (
	// DiagEmptyBand marks a band that selected zero frequency bins.
	DiagEmptyBand DiagnosticKind = iota

	// DiagDegenerate marks a numerical degeneracy, such as a single-ROI
	// network or a zero auto-power normalization.
	DiagDegenerate

	// DiagShape marks a shape or reference mismatch found during
	// computation rather than validation.
	DiagShape

	// DiagIncomplete marks results cut short by context cancellation.
	DiagIncomplete
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagEmptyBand:
		return "empty_band"
	case DiagDegenerate:
		return "degenerate"
	case DiagShape:
		return "shape_mismatch"
	case DiagIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Diagnostic describes one non-fatal condition encountered while analyzing
// one subject (a ROI, a network, or a band).
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Subject string         `json:"subject"`
	Message string         `json:"message"`
}

// MarshalJSON renders the kind as its string form.
func (k DiagnosticKind) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, k.String()), nil
}

// Value is one named output vector. Band-power reductions produce one entry
// per ROI; connectivity reductions one entry per band.
type Value struct {
	Data []float64

	wrapped bool
}

// MarshalJSON renders a single-element vector as a bare number and a longer
// one as an array. When the value is wrapped it is emitted as a one-field
// "mean" record instead. Non-finite entries render as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if v.wrapped {
		buf.WriteString(`{"mean":`)
	}

	if len(v.Data) == 1 {
		appendNumber(&buf, v.Data[0])
	} else {
		buf.WriteByte('[')
		for i, x := range v.Data {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendNumber(&buf, x)
		}
		buf.WriteByte(']')
	}

	if v.wrapped {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func appendNumber(buf *bytes.Buffer, x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		buf.WriteString("null")
		return
	}
	buf.Write(strconv.AppendFloat(nil, x, 'g', -1, 64))
}

// ResultSet collects every named output of one analysis run together with
// the diagnostics raised along the way. It is safe for concurrent writes.
type ResultSet struct {
	mu sync.Mutex

	Values      map[string]Value `json:"values"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`

	// Incomplete is set when the context expired before all work finished.
	Incomplete bool `json:"incomplete,omitempty"`
}

func newResultSet() *ResultSet {
	return &ResultSet{Values: make(map[string]Value)}
}

func (r *ResultSet) add(name string, data []float64, wrap bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Values[name] = Value{Data: data, wrapped: wrap}
}

func (r *ResultSet) diagnose(kind DiagnosticKind, subject, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Kind: kind, Subject: subject, Message: message})
}

func (r *ResultSet) markIncomplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Incomplete = true
}

// Names returns the stored output names in ascending order.
func (r *ResultSet) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.Values))
	for name := range r.Values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
