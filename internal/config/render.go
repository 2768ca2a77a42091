// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docx-merge/pkg/types"
)

// RenderDefaultYAML renders a commented config file holding every default.
func RenderDefaultYAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	sections := map[string]*yaml.Node{}

	for _, o := range Options() {
		parent := root
		key := o.Key
		if section, rest, ok := strings.Cut(o.Key, "."); ok {
			parent, ok = sections[section]
			if !ok {
				parent = &yaml.Node{Kind: yaml.MappingNode}
				sections[section] = parent
				root.Content = append(root.Content, scalar(section, ""), parent)
			}
			key = rest
		}
		k := scalar(key, "")
		k.HeadComment = o.Comment
		parent.Content = append(parent.Content, k, valueNode(o.Default))
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, HeadComment: "docx-merge configuration", Content: []*yaml.Node{root}}
	return encode(doc)
}

// RenderYAML renders the effective configuration.
func RenderYAML(cfg types.Config) ([]byte, error) {
	return encode(cfg)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(value, tag string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func valueNode(v any) *yaml.Node {
	switch x := v.(type) {
	case bool:
		return scalar(fmt.Sprint(x), "!!bool")
	case int:
		return scalar(fmt.Sprint(x), "!!int")
	case time.Duration:
		return scalar(x.String(), "!!str")
	case string:
		n := scalar(x, "!!str")
		if x == "" {
			n.Style = yaml.DoubleQuotedStyle
		}
		return n
	default:
		return scalar(fmt.Sprint(x), "")
	}
}
