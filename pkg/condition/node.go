package condition

// Operator identifies the kind of a condition tree node.
type Operator string

const (
	OpAnd      Operator = "and"
	OpOr       Operator = "or"
	OpNot      Operator = "not"
	OpMatch    Operator = "match"
	OpAudience Operator = "audience"
)

// Attributes is the user attribute map conditions are evaluated against.
type Attributes = map[string]any

// AudienceResolver returns the condition tree of an audience by id.
// Audience-reference leaves are resolved through it.
type AudienceResolver interface {
	AudienceCondition(id string) (*Node, bool)
}

// Node is a single node of a condition tree. Nodes are immutable once built
// and safe for concurrent evaluation.
type Node struct {
	Op         Operator
	Children   []*Node
	Match      *Match
	AudienceID string
}

// AllOf returns an AND node.
func AllOf(children ...*Node) *Node {
	return &Node{Op: OpAnd, Children: children}
}

// AnyOf returns an OR node.
func AnyOf(children ...*Node) *Node {
	return &Node{Op: OpOr, Children: children}
}

// Negate returns a NOT node.
func Negate(child *Node) *Node {
	return &Node{Op: OpNot, Children: []*Node{child}}
}

// Attr returns a leaf matching a custom attribute.
func Attr(name string, matchType MatchType, value any) *Node {
	return &Node{Op: OpMatch, Match: &Match{
		Name:  name,
		Type:  CustomAttribute,
		Kind:  matchType,
		Value: value,
	}}
}

// Audience returns a leaf referencing another audience by id.
func Audience(id string) *Node {
	return &Node{Op: OpAudience, AudienceID: id}
}

// Evaluate evaluates the tree rooted at n. A nil node has no conditions and
// evaluates to True.
func (n *Node) Evaluate(attrs Attributes, audiences AudienceResolver) Ternary {
	if n == nil {
		return True
	}

	switch n.Op {
	case OpAnd:
		return And(n.lazyChildren(attrs, audiences)...)
	case OpOr:
		return Or(n.lazyChildren(attrs, audiences)...)
	case OpNot:
		if len(n.Children) == 0 {
			return Unknown
		}
		return n.Children[0].Evaluate(attrs, audiences).Not()
	case OpMatch:
		return n.Match.Evaluate(attrs)
	case OpAudience:
		if audiences == nil {
			return Unknown
		}
		tree, ok := audiences.AudienceCondition(n.AudienceID)
		if !ok {
			return Unknown
		}
		return tree.Evaluate(attrs, audiences)
	default:
		return Unknown
	}
}

// AudienceIDs returns every audience id referenced in the tree, in order of
// appearance.
func (n *Node) AudienceIDs() []string {
	if n == nil {
		return nil
	}
	var ids []string
	var walk func(*Node)
	walk = func(node *Node) {
		if node == nil {
			return
		}
		if node.Op == OpAudience {
			ids = append(ids, node.AudienceID)
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return ids
}

func (n *Node) lazyChildren(attrs Attributes, audiences AudienceResolver) []func() Ternary {
	fns := make([]func() Ternary, len(n.Children))
	for i, child := range n.Children {
		fns[i] = func() Ternary { return child.Evaluate(attrs, audiences) }
	}
	return fns
}
