// Package parser turns untrusted model output into structured suggestions.
//
// Models are asked to answer with a JSON array of objects such as
//
//	[{"action": "press_element", "target": {"element_name": "Continue"}, "reason": "dismiss popup"}]
//
// but routinely wrap it in Markdown code fences or return a single object.
// Parse tolerates both. It does not validate actions against any capability
// set; that is the dispatcher's job.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
	"github.com/kaptinlin/jsonrepair"
)

const fence = "```"

// Options configure a Parser.
type Options struct {
	// Repair runs jsonrepair over output that fails strict decoding.
	// Off by default so truncated output is reported as a ParseError.
	Repair bool
	Logger logging.Logger
}

// WithRepair enables the jsonrepair fallback.
func WithRepair() func(o *Options) {
	return func(o *Options) { o.Repair = true }
}

// Parser decodes model output into suggestions.
type Parser struct {
	opts Options
}

// New creates a Parser.
func New(optFns ...func(o *Options)) *Parser {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Parser{opts: opts}
}

var strict = New()

// Parse decodes raw with a strict default Parser.
func Parse(raw string) ([]core.Suggestion, error) {
	return strict.Parse(raw)
}

// Parse strips code fences and decodes the remaining JSON. Failures are
// returned as *core.ParseError.
func (p *Parser) Parse(raw string) ([]core.Suggestion, error) {
	text := StripFences(raw)

	out, err := decode(text)
	if err == nil {
		return out, nil
	}
	if !p.opts.Repair {
		return nil, &core.ParseError{Raw: raw, Err: err}
	}

	repaired, rerr := jsonrepair.JSONRepair(text)
	if rerr != nil {
		p.opts.Logger.Debug("parser.repair.failed", "error", rerr)
		return nil, &core.ParseError{Raw: raw, Err: err}
	}
	out, rerr = decode(repaired)
	if rerr != nil {
		return nil, &core.ParseError{Raw: raw, Err: err}
	}
	p.opts.Logger.Debug("parser.repair.applied", "suggestions", len(out))
	return out, nil
}

// StripFences trims whitespace and removes a leading Markdown fence (with
// optional language tag, also when the payload follows on the same line) and
// a trailing fence.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, fence) {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimLeftFunc(strings.TrimPrefix(text, fence), isLangTagRune)
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, fence)
	return strings.TrimSpace(text)
}

func decode(text string) ([]core.Suggestion, error) {
	if text == "" {
		return nil, errors.New("empty output")
	}

	var items []map[string]any
	if strings.HasPrefix(text, "{") {
		var single map[string]any
		if err := json.Unmarshal([]byte(text), &single); err != nil {
			return nil, err
		}
		items = []map[string]any{single}
	} else if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}

	out := make([]core.Suggestion, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		out = append(out, toSuggestion(item))
	}
	return out, nil
}

func toSuggestion(item map[string]any) core.Suggestion {
	s := core.Suggestion{}
	if v, ok := item["action"].(string); ok {
		s.Action = v
	}
	if v, ok := item["reason"].(string); ok {
		s.Reason = v
	}
	switch t := item["target"].(type) {
	case map[string]any:
		s.Target = t
	case nil:
	default:
		// Bare targets ("Continue") are kept under the "value" alias.
		s.Target = map[string]any{"value": t}
	}
	return s
}

func isLangTagRune(r rune) bool {
	return r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}
