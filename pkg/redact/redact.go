// Package redact scrubs values stored under sensitive key names from
// captured events before they leave the process.
package redact

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/sessionreplay/sessionreplay-go/internal/shared"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

// Redact removes values stored under keys from e in place and appends a
// RedactedKeyMeta entry for each value removed.
func Redact(e *event.Event, keys Keys) []error {
	if e == nil || len(keys) == 0 {
		return nil
	}
	var errs []error
	meta := []event.RedactedKeyMeta{}

	switch {
	case e.Network != nil:
		if req := e.Network.Request; req != nil {
			meta = append(meta, Headers(req.Headers, keys, shared.RequestHeadersStr)...)
			m, err := body(req.Body, keys, shared.RequestBodyStr)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "redact: request %s", req.ReqID))
			}
			meta = append(meta, m...)
		}
		if resp := e.Network.Response; resp != nil {
			meta = append(meta, Headers(resp.Headers, keys, shared.ResponseHeadersStr)...)
			m, err := body(resp.Body, keys, shared.ResponseBodyStr)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "redact: response %s", resp.ReqID))
			}
			meta = append(meta, m...)
		}
	case e.Track != nil:
		meta, errs = appendMap(meta, errs, e.Track.Properties, keys, shared.PropertiesStr)
	case e.Identify != nil:
		meta, errs = appendMap(meta, errs, e.Identify.Traits, keys, shared.TraitsStr)
	case e.Exception != nil:
		meta, errs = appendMap(meta, errs, e.Exception.Tags, keys, "tags")
		meta, errs = appendMap(meta, errs, e.Exception.Extra, keys, "extra")
	case e.Console != nil:
		meta, errs = appendMap(meta, errs, e.Console.Fields, keys, "fields")
	case e.Redux != nil:
		meta, errs = appendMap(meta, errs, e.Redux.Action, keys, shared.ActionStr)
		meta, errs = appendMap(meta, errs, e.Redux.State, keys, shared.StateStr)
	case e.View != nil:
		m, err := Value(&e.View.Snapshot, keys, shared.SnapshotStr)
		if err != nil {
			errs = append(errs, err)
		}
		meta = append(meta, m...)
	}

	e.MetaData.SensitiveKeys = append(e.MetaData.SensitiveKeys, meta...)
	return errs
}

func appendMap(meta []event.RedactedKeyMeta, errs []error, m map[string]any, keys Keys, path string) ([]event.RedactedKeyMeta, []error) {
	found, err := Map(m, keys, path)
	if err != nil {
		errs = append(errs, err)
	}
	return append(meta, found...), errs
}

// Headers replaces matching header values with the sha1 of their contents.
func Headers(h map[string]*string, keys Keys, path string) []event.RedactedKeyMeta {
	meta := []event.RedactedKeyMeta{}
	for k, v := range h {
		if v == nil || !keys.Has(k) {
			continue
		}
		meta = append(meta, event.RedactedKeyMeta{
			KeyPath: formatFieldPathPart(path, k),
			Length:  len(*v),
			Type:    "string",
		})
		redacted := hashed(*v)
		h[k] = &redacted
	}
	return meta
}

func hashed(v string) string {
	sha := sha1.Sum([]byte(v))
	return "redacted:" + hex.EncodeToString(sha[:])
}

// Map redacts matching keys anywhere below m. Entries are first normalised
// in place, so keys inside structs are found too. An entry that cannot be
// normalised is replaced with nil and reported.
func Map(m map[string]any, keys Keys, path string) ([]event.RedactedKeyMeta, error) {
	if m == nil {
		return nil, nil
	}
	var failed []string
	for k, v := range m {
		normalized, err := Normalize(v)
		if err != nil {
			m[k] = nil
			failed = append(failed, formatFieldPathPart(path, k))
			continue
		}
		m[k] = normalized
	}
	meta := walk(reflect.ValueOf(m), keys, path)
	if len(failed) > 0 {
		return meta, errors.Errorf("redact: cannot encode %v", failed)
	}
	return meta, nil
}

// Value normalises *v into plain JSON values (so struct fields become
// redactable keys) and redacts it.
func Value(v *any, keys Keys, path string) ([]event.RedactedKeyMeta, error) {
	if v == nil || *v == nil {
		return nil, nil
	}
	normalized, err := Normalize(*v)
	if err != nil {
		return nil, errors.Wrapf(err, "redact: normalise %s", path)
	}
	*v = normalized
	return walk(reflect.ValueOf(normalized), keys, path), nil
}

// Normalize converts v into the generic form produced by encoding/json.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// body redacts a captured body when it holds a JSON object or array. Other
// bodies are left untouched.
func body(b *string, keys Keys, path string) ([]event.RedactedKeyMeta, error) {
	if b == nil {
		return nil, nil
	}
	if !json.Valid([]byte(*b)) {
		return truncatedJSON(b, keys, path), nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(*b), &parsed); err != nil {
		return nil, err
	}
	switch parsed.(type) {
	case map[string]any, []any:
	default:
		return nil, nil
	}

	meta := walk(reflect.ValueOf(parsed), keys, path)
	if len(meta) == 0 {
		return meta, nil
	}
	out, err := json.Marshal(parsed)
	if err != nil {
		return nil, err
	}
	*b = string(out)
	return meta, nil
}

// truncatedJSON hashes a body that looks like JSON but does not parse, as a
// capture cut at the size limit does, when it mentions any key. Its keys
// cannot be redacted one by one.
func truncatedJSON(b *string, keys Keys, path string) []event.RedactedKeyMeta {
	trimmed := strings.TrimSpace(*b)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return nil
	}
	lower := strings.ToLower(trimmed)
	for k := range keys {
		if strings.Contains(lower, k) {
			meta := []event.RedactedKeyMeta{{KeyPath: path, Length: len(*b), Type: "string"}}
			*b = hashed(*b)
			return meta
		}
	}
	return nil
}

// walk recurses through maps and slices, zeroing map entries whose key is in
// keys. Only map entries are replaced, so values never need to be settable.
func walk(v reflect.Value, keys Keys, path string) []event.RedactedKeyMeta {
	results := []event.RedactedKeyMeta{}
	if !v.IsValid() {
		return results
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return results
		}
		return walk(v.Elem(), keys, path)

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String {
			return results
		}
		for _, key := range v.MapKeys() {
			mapVal := v.MapIndex(key)
			keyPath := formatFieldPathPart(path, key.String())
			if keys.Has(key.String()) {
				results = append(results, event.RedactedKeyMeta{
					KeyPath: keyPath,
					Length:  getSize(mapVal),
					Type:    formatKind(kindOf(mapVal)),
				})
				v.SetMapIndex(key, reflect.Zero(v.Type().Elem()))
				continue
			}
			results = append(results, walk(mapVal, keys, keyPath)...)
		}
		return results

	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			results = append(results, walk(v.Index(i), keys, formatArrayPathPart(path, i))...)
		}
		return results

	default:
		return results
	}
}
