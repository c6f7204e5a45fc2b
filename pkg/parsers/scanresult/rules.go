package scanresult

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// fieldView resolves keys against one raw record. A view is not safe for
// concurrent use; Normalize builds one per record.
type fieldView struct {
	fields map[string]any
	fold   cases.Caser
}

func newFieldView(fields map[string]any) *fieldView {
	return &fieldView{fields: fields, fold: cases.Fold()}
}

// lookup walks a dotted path. Each segment prefers an exact key and
// otherwise matches keys case-insensitively, in sorted key order.
func (v *fieldView) lookup(path string) (any, bool) {
	var cur any = v.fields
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		val, ok := obj[seg]
		if !ok {
			val, ok = v.lookupFolded(obj, seg)
		}
		if !ok {
			return nil, false
		}
		cur = val
	}
	return cur, true
}

func (v *fieldView) lookupFolded(obj map[string]any, seg string) (any, bool) {
	want := v.fold.String(seg)

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v.fold.String(k) == want {
			return obj[k], true
		}
	}
	return nil, false
}

// rule extracts one optional string from a record.
type rule func(v *fieldView) (string, bool)

// key returns a rule reading a scalar at path. Arrays yield their first
// non-empty scalar element; objects never match.
func key(path string) rule {
	return func(v *fieldView) (string, bool) {
		raw, ok := v.lookup(path)
		if !ok {
			return "", false
		}
		s := scalarString(raw)
		return s, s != ""
	}
}

func scalarString(raw any) string {
	switch val := raw.(type) {
	case string:
		return strings.TrimSpace(strings.ReplaceAll(val, "\x00", ""))
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		for _, item := range val {
			if s := scalarString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstNonEmpty applies rules in order and returns the first match, or def.
func firstNonEmpty(v *fieldView, def string, rules ...rule) string {
	for _, r := range rules {
		if s, ok := r(v); ok {
			return s
		}
	}
	return def
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05",
}

// parseTime accepts RFC 3339 variants and unix seconds.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

// firstTime applies rules in order and returns the first value that parses
// as a timestamp.
func firstTime(v *fieldView, rules ...rule) (time.Time, bool) {
	for _, r := range rules {
		s, ok := r(v)
		if !ok {
			continue
		}
		if t, ok := parseTime(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Extraction rules per canonical field, in precedence order.
var (
	severityRules       = []rule{key("info.severity"), key("severity")}
	templateIDRules     = []rule{key("template-id"), key("templateID"), key("template_id"), key("template"), key("id")}
	templateNameRules   = []rule{key("info.name"), key("name"), key("template-name"), key("templateName")}
	externalVulnIDRules = []rule{key("info.classification.cve-id"), key("cve-id"), key("cve"), key("vuln-id"), key("vulnId"), key("id")}
	hostRules           = []rule{key("host"), key("hostname"), key("ip"), key("target")}
	matchedAtRules      = []rule{key("matched-at"), key("matchedAt"), key("matched_at"), key("timestamp")}
	matcherNameRules    = []rule{key("matcher-name"), key("matcherName"), key("matcher_name")}
	matcherStatusRules  = []rule{key("matcher-status"), key("matcherStatus"), key("matcher_status")}
	contentHashRules    = []rule{key("hash"), key("content-hash"), key("contentHash"), key("fingerprint")}
	descriptionRules    = []rule{key("info.description"), key("description")}
)
