// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/ManuGH/settingsd/internal/document"
)

// Built-in command names.
const (
	CmdLoadConfig  = "load_config"
	CmdSaveConfig  = "save_config"
	CmdGetValue    = "get_config_value"
	CmdSetValue    = "set_config_value"
	CmdDeleteValue = "delete_config_value"
)

// ConfigStore is the persistence the config commands delegate to.
type ConfigStore interface {
	Load(ctx context.Context) (document.Document, error)
	Save(ctx context.Context, doc document.Document) error
	Get(ctx context.Context, key string) (ldvalue.Value, bool, error)
	Set(ctx context.Context, key string, value ldvalue.Value) (document.Document, error)
	Delete(ctx context.Context, key string) (document.Document, error)
}

// ValueResult is returned by get_config_value.
type ValueResult struct {
	Key   string        `json:"key"`
	Value ldvalue.Value `json:"value"`
	Found bool          `json:"found"`
}

type keyArgs struct {
	Key string `json:"key"`
}

type saveArgs struct {
	Config *document.Document `json:"config"`
}

type setArgs struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// RegisterConfigCommands binds the configuration commands to s.
func RegisterConfigCommands(r *Router, s ConfigStore) error {
	cmds := map[string]Handler{
		CmdLoadConfig: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return s.Load(ctx)
		},
		CmdSaveConfig: func(ctx context.Context, args json.RawMessage) (any, error) {
			doc, err := decodeSaveArgs(args)
			if err != nil {
				return nil, err
			}
			if err := s.Save(ctx, doc); err != nil {
				return nil, err
			}
			return nil, nil
		},
		CmdGetValue: func(ctx context.Context, args json.RawMessage) (any, error) {
			var a keyArgs
			if err := decodeStrict(args, &a); err != nil {
				return nil, err
			}
			if a.Key == "" {
				return nil, fmt.Errorf("%w: key is required", ErrBadArguments)
			}
			v, found, err := s.Get(ctx, a.Key)
			if err != nil {
				return nil, err
			}
			return ValueResult{Key: a.Key, Value: v, Found: found}, nil
		},
		CmdSetValue: func(ctx context.Context, args json.RawMessage) (any, error) {
			var a setArgs
			if err := decodeStrict(args, &a); err != nil {
				return nil, err
			}
			if a.Key == "" {
				return nil, fmt.Errorf("%w: key is required", ErrBadArguments)
			}
			if len(a.Value) == 0 {
				return nil, fmt.Errorf("%w: value is required", ErrBadArguments)
			}
			var v ldvalue.Value
			if err := json.Unmarshal(a.Value, &v); err != nil {
				return nil, fmt.Errorf("%w: value: %v", ErrBadArguments, err)
			}
			return s.Set(ctx, a.Key, v)
		},
		CmdDeleteValue: func(ctx context.Context, args json.RawMessage) (any, error) {
			var a keyArgs
			if err := decodeStrict(args, &a); err != nil {
				return nil, err
			}
			if a.Key == "" {
				return nil, fmt.Errorf("%w: key is required", ErrBadArguments)
			}
			return s.Delete(ctx, a.Key)
		},
	}

	for _, name := range []string{CmdLoadConfig, CmdSaveConfig, CmdGetValue, CmdSetValue, CmdDeleteValue} {
		if err := r.Register(name, cmds[name]); err != nil {
			return err
		}
	}
	return nil
}

// decodeSaveArgs requires the named form {"config": {...}}. A bare document
// is rejected so a setting called "config" is never mistaken for the wrapper.
func decodeSaveArgs(args json.RawMessage) (document.Document, error) {
	var a saveArgs
	if err := decodeStrict(args, &a); err != nil {
		return document.Document{}, err
	}
	if a.Config == nil {
		return document.Document{}, fmt.Errorf("%w: config document is required", ErrBadArguments)
	}
	return *a.Config, nil
}

func decodeStrict(args json.RawMessage, out any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		return fmt.Errorf("%w: arguments are required", ErrBadArguments)
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after arguments", ErrBadArguments)
	}
	return nil
}
