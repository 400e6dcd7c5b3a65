// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Codec converts a Document to and from its on-disk representation.
type Codec interface {
	Name() string
	Encode(Document) ([]byte, error)
	Decode([]byte) (Document, error)
}

// CodecForPath picks the codec matching the file extension.
// YAML for .yaml and .yml, JSON otherwise.
func CodecForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}
	default:
		return JSONCodec{}
	}
}

// JSONCodec stores documents as indented JSON with sorted keys.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(d Document) ([]byte, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func (JSONCodec) Decode(data []byte) (Document, error) {
	d, err := decodeJSON(data)
	if err != nil {
		return Document{}, fmt.Errorf("decode json: %w", err)
	}
	if err := checkIntegers(data); err != nil {
		return Document{}, fmt.Errorf("decode json: %w", err)
	}
	return d, nil
}

// YAMLCodec stores documents as YAML mappings.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(d Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.AsMap()); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Decode(data []byte) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("decode yaml: %w", err)
	}
	if raw == nil {
		return Document{}, errors.New("decode yaml: empty document")
	}
	norm, err := normalizeYAML(raw)
	if err != nil {
		return Document{}, fmt.Errorf("decode yaml: %w", err)
	}
	top, ok := norm.(map[string]any)
	if !ok {
		return Document{}, ErrNotObject
	}
	return FromMap(top), nil
}

// normalizeYAML rewrites yaml.v3 output into values ldvalue understands:
// non-string map keys are stringified and timestamps become RFC 3339 text.
// Integers that float64 cannot hold exactly are rejected.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			n, err := normalizeYAML(inner)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			n, err := normalizeYAML(inner)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		for i, inner := range t {
			n, err := normalizeYAML(inner)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case int:
		if err := checkIntegerLiteral(strconv.Itoa(t)); err != nil {
			return nil, err
		}
		return t, nil
	case uint64:
		if err := checkIntegerLiteral(strconv.FormatUint(t, 10)); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return v, nil
	}
}
