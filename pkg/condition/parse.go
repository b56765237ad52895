package condition

import (
	"encoding/json"
	"fmt"
)

// ParseConditions decodes an audience condition tree. The input is either
// the decoded nested-list form or a JSON string holding it.
func ParseConditions(v any) (*Node, error) {
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
		}
		v = decoded
	}
	return parseNode(v, parseMatchLeaf)
}

// ParseAudienceConditions decodes an experiment audience expression whose
// leaves are audience ids. A nil or empty expression returns a nil node,
// meaning the experiment targets everyone.
func ParseAudienceConditions(v any) (*Node, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		if len(t) == 0 {
			return nil, nil
		}
	case string:
		return Audience(t), nil
	}
	return parseNode(v, parseAudienceLeaf)
}

type leafParser func(v any) (*Node, error)

func parseNode(v any, leaf leafParser) (*Node, error) {
	list, ok := v.([]any)
	if !ok {
		return leaf(v)
	}

	op := OpOr
	items := list
	if len(list) > 0 {
		if s, ok := list[0].(string); ok {
			switch Operator(s) {
			case OpAnd, OpOr, OpNot:
				op = Operator(s)
				items = list[1:]
			}
		}
	}

	children := make([]*Node, 0, len(items))
	for _, item := range items {
		child, err := parseNode(item, leaf)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if op == OpNot && len(children) == 0 {
		return nil, fmt.Errorf("%w: not without operand", ErrInvalidCondition)
	}
	return &Node{Op: op, Children: children}, nil
}

func parseMatchLeaf(v any) (*Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected leaf %T", ErrInvalidCondition, v)
	}

	name, _ := obj["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: leaf without attribute name", ErrInvalidCondition)
	}
	typ, _ := obj["type"].(string)
	kind, _ := obj["match"].(string)

	return &Node{Op: OpMatch, Match: &Match{
		Name:  name,
		Type:  typ,
		Kind:  MatchType(kind),
		Value: obj["value"],
	}}, nil
}

func parseAudienceLeaf(v any) (*Node, error) {
	id, ok := v.(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: audience reference must be a non-empty string, got %T", ErrInvalidCondition, v)
	}
	return Audience(id), nil
}
