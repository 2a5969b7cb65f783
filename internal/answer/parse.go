package answer

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/Olivia98106/semi-code/internal/jsonx"
	"github.com/Olivia98106/semi-code/internal/model"
)

// ParsedAnswer is the structured form of a model answer. When the payload
// could not be parsed, ParseFailed is set and Result stays empty; Raw keeps
// the full text so nothing the model said is lost.
type ParsedAnswer struct {
	Result      string
	Confidence  model.ConfidenceLevel
	Evidence    string
	Raw         string
	ParseFailed bool
}

// confidenceKeys lists the key spellings models actually produce for the
// confidence field, in lookup order.
var confidenceKeys = []string{
	"confidence_level",
	"confidence level",
	"your confidence level(high/middle/low)",
	"your confidence level (high/middle/low)",
	"confidence",
}

// Parse turns raw model output into a ParsedAnswer. It tolerates prose and
// markdown fences around the JSON object and degrades to a failed parse
// rather than erroring: the caller always gets something to record.
func Parse(raw string) ParsedAnswer {
	out := ParsedAnswer{Raw: raw}

	obj, ok := jsonx.ExtractObject(raw)
	if !ok {
		return failed(out)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		zap.L().Warn("answer payload is not valid json", zap.Error(err))
		return failed(out)
	}

	result, ok := fields["result"]
	if !ok {
		// valid JSON without the agreed key: parsed, but recorded with the
		// failure marker instead of guessing a field
		out.Result = Fallback
		return out
	}
	out.Result = jsonx.NormalizeResult(coerceString(result))

	for _, key := range confidenceKeys {
		if v, ok := fields[key]; ok {
			if level, ok := model.ParseConfidenceLevel(coerceString(v)); ok {
				out.Confidence = level
			}
			break
		}
	}

	if v, ok := fields["evidence"]; ok {
		out.Evidence = jsonx.NormalizeResult(coerceString(v))
	}

	return out
}

func failed(out ParsedAnswer) ParsedAnswer {
	out.ParseFailed = true
	return out
}

// SearchHit is one entry of a keyword search answer.
type SearchHit struct {
	Result    string `json:"result"`
	Reference string `json:"reference"`
}

// ParseList parses the array-shaped answers produced by keyword search
// prompts. A payload with no array envelope returns ok=false.
func ParseList(raw string) ([]SearchHit, bool) {
	arr, ok := jsonx.ExtractArray(raw)
	if !ok {
		return nil, false
	}

	var hits []SearchHit
	if err := json.Unmarshal([]byte(arr), &hits); err != nil {
		zap.L().Warn("search answer is not a valid json array", zap.Error(err))
		return nil, false
	}

	for i := range hits {
		hits[i].Result = jsonx.NormalizeResult(hits[i].Result)
		hits[i].Reference = jsonx.NormalizeResult(hits[i].Reference)
	}
	return hits, true
}

// coerceString renders a JSON value as a flat string: quoted strings are
// unquoted, everything else keeps its compact JSON form.
func coerceString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}
