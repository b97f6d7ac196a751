package queryir

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relalg/internal/ir"
)

// YAML/JSON codec for expression lists.
//
// DOCUMENT FORMS:
//
//	- bind: adults               # optional binding name
//	  query: <op>
//	- query: <op>
//
// A document may also be a single {bind, query} mapping or a bare <op>.
// JSON documents are accepted because YAML is a superset of JSON.
//
// OPERATORS (<op>):
//
//	people                                  relation reference
//	union: [<op>, <op>]                     also intersect, difference,
//	                                        symdiff, product
//	select: {where: <term>, from: <op>}
//	project: {attributes: [<proj>...], from: <op>}
//	rename: {names: {<attr>: <name>...}, from: <op>}
//	order: {by: [<attr>...], from: <op>}
//	group: {by: [<attr>...], from: <op>}
//	join: [<op>, <op>]                      natural join
//	theta: {on: <term>, lhs: <op>, rhs: <op>}
//
// TERMS (<term>):
//
//	true | false
//	exists: <attr>
//	eq: [<attr>, <attr-or-literal>]         also ne, lt, le, gt, ge,
//	                                        match, not_match
//	not: <term>
//	and: [<term>...]  |  or: [<term>...]
//	const: <scalar>                         non-boolean constants
//
// ATTRIBUTES AND LITERALS:
//
// An integer scalar is a positional attribute, any other scalar a name.
// Literals are mappings: {const: <scalar>} infers integer, float,
// boolean, or string from the YAML tag; {<domain>: <text>} parses the text
// in the named domain, e.g. {char: a}, {binary: 0a0b}, {unsigned: 7}.

// DecodeError reports a malformed document with its source position.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

func decodeErrorf(node *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: node.Line, Column: node.Column, Message: fmt.Sprintf(format, args...)}
}

// DecodeList parses a YAML or JSON document into an expression list.
func DecodeList(data []byte) (ExpressionList, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &DecodeError{Message: "empty document"}
	}
	return DecodeListNode(doc.Content[0])
}

// DecodeOp parses a YAML or JSON document holding a single operator tree.
func DecodeOp(data []byte) (RelationalOp, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &DecodeError{Message: "empty document"}
	}
	return DecodeOpNode(doc.Content[0])
}

// DecodeListNode decodes an already-parsed YAML node into an expression
// list. Used by hosts that embed queries in larger documents.
func DecodeListNode(node *yaml.Node) (ExpressionList, error) {
	switch {
	case node.Kind == yaml.SequenceNode:
		list := make(ExpressionList, 0, len(node.Content))
		for _, item := range node.Content {
			e, err := decodeExpression(item)
			if err != nil {
				return nil, err
			}
			list = append(list, e)
		}
		return list, nil
	case node.Kind == yaml.MappingNode && mappingHas(node, "query"):
		e, err := decodeExpression(node)
		if err != nil {
			return nil, err
		}
		return ExpressionList{e}, nil
	default:
		op, err := DecodeOpNode(node)
		if err != nil {
			return nil, err
		}
		return ExpressionList{Query(op)}, nil
	}
}

func decodeExpression(node *yaml.Node) (Expression, error) {
	if node.Kind != yaml.MappingNode {
		return Expression{}, decodeErrorf(node, "expression must be a mapping with a query key")
	}
	var expr Expression
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "bind":
			name, err := decodeName(val)
			if err != nil {
				return Expression{}, err
			}
			expr.Name = name
		case "query":
			op, err := DecodeOpNode(val)
			if err != nil {
				return Expression{}, err
			}
			expr.Op = op
		default:
			return Expression{}, decodeErrorf(key, "unknown expression field %q", key.Value)
		}
	}
	if expr.Op == nil {
		return Expression{}, decodeErrorf(node, "expression is missing query")
	}
	return expr, nil
}

// DecodeOpNode decodes an already-parsed YAML node into an operator tree.
func DecodeOpNode(node *yaml.Node) (RelationalOp, error) {
	if node.Kind == yaml.ScalarNode {
		name, err := decodeName(node)
		if err != nil {
			return nil, err
		}
		return NewRelation(name), nil
	}

	key, val, err := singleEntry(node, "operator")
	if err != nil {
		return nil, err
	}

	if op, ok := parseSetOperator(key.Value); ok {
		lhs, rhs, err := decodePair(val)
		if err != nil {
			return nil, err
		}
		return NewSetOperation(lhs, op, rhs), nil
	}

	switch key.Value {
	case "select":
		fields, err := fieldsOf(val, "where", "from")
		if err != nil {
			return nil, err
		}
		criteria, err := DecodeTermNode(fields["where"])
		if err != nil {
			return nil, err
		}
		from, err := DecodeOpNode(fields["from"])
		if err != nil {
			return nil, err
		}
		return NewSelection(criteria, from), nil

	case "project":
		fields, err := fieldsOf(val, "attributes", "from")
		if err != nil {
			return nil, err
		}
		attrs, err := decodeProjected(fields["attributes"])
		if err != nil {
			return nil, err
		}
		from, err := DecodeOpNode(fields["from"])
		if err != nil {
			return nil, err
		}
		return NewProjection(attrs, from), nil

	case "rename":
		fields, err := fieldsOf(val, "names", "from")
		if err != nil {
			return nil, err
		}
		pairs, err := decodeRenames(fields["names"])
		if err != nil {
			return nil, err
		}
		from, err := DecodeOpNode(fields["from"])
		if err != nil {
			return nil, err
		}
		r, err := NewRenamePairs(pairs, from)
		if err != nil {
			return nil, decodeErrorf(fields["names"], "%v", err)
		}
		return r, nil

	case "order", "group":
		fields, err := fieldsOf(val, "by", "from")
		if err != nil {
			return nil, err
		}
		attrs, err := decodeAttributes(fields["by"])
		if err != nil {
			return nil, err
		}
		from, err := DecodeOpNode(fields["from"])
		if err != nil {
			return nil, err
		}
		if key.Value == "order" {
			return NewOrder(attrs, from), nil
		}
		return NewGroup(attrs, from), nil

	case "join":
		lhs, rhs, err := decodePair(val)
		if err != nil {
			return nil, err
		}
		return NaturalJoin(lhs, rhs), nil

	case "theta":
		fields, err := fieldsOf(val, "on", "lhs", "rhs")
		if err != nil {
			return nil, err
		}
		criteria, err := DecodeTermNode(fields["on"])
		if err != nil {
			return nil, err
		}
		lhs, err := DecodeOpNode(fields["lhs"])
		if err != nil {
			return nil, err
		}
		rhs, err := DecodeOpNode(fields["rhs"])
		if err != nil {
			return nil, err
		}
		return ThetaJoin(lhs, criteria, rhs), nil

	default:
		return nil, decodeErrorf(key, "unknown operator %q", key.Value)
	}
}

// DecodeTermNode decodes an already-parsed YAML node into a term.
func DecodeTermNode(node *yaml.Node) (Term, error) {
	if node.Kind == yaml.ScalarNode {
		if node.ShortTag() != "!!bool" {
			return nil, decodeErrorf(node, "scalar term must be true or false, got %q", node.Value)
		}
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, decodeErrorf(node, "%v", err)
		}
		return ConstantTerm{Value: ir.Boolean(b)}, nil
	}

	key, val, err := singleEntry(node, "term")
	if err != nil {
		return nil, err
	}

	if op, err := ParseComparisonOperator(key.Value); err == nil {
		if val.Kind != yaml.SequenceNode || len(val.Content) != 2 {
			return nil, decodeErrorf(val, "%s expects [attribute, attribute-or-literal]", key.Value)
		}
		lhs, err := decodeAttribute(val.Content[0])
		if err != nil {
			return nil, err
		}
		rhs, err := decodeProjectedAttribute(val.Content[1])
		if err != nil {
			return nil, err
		}
		return AtomTerm{LHS: lhs, Op: op, RHS: rhs}, nil
	}

	switch key.Value {
	case "exists":
		a, err := decodeAttribute(val)
		if err != nil {
			return nil, err
		}
		return ExistsTerm{Attribute: a}, nil
	case "not":
		t, err := DecodeTermNode(val)
		if err != nil {
			return nil, err
		}
		return NegateTerm{Term: t}, nil
	case "and", "or":
		if val.Kind != yaml.SequenceNode || len(val.Content) == 0 {
			return nil, decodeErrorf(val, "%s expects a non-empty list of terms", key.Value)
		}
		terms := make([]Term, len(val.Content))
		for i, item := range val.Content {
			t, err := DecodeTermNode(item)
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		if key.Value == "and" {
			return And(terms...), nil
		}
		return Or(terms...), nil
	default:
		v, err := decodeLiteral(node)
		if err != nil {
			return nil, decodeErrorf(key, "unknown term %q", key.Value)
		}
		return ConstantTerm{Value: v}, nil
	}
}

func decodePair(node *yaml.Node) (RelationalOp, RelationalOp, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return nil, nil, decodeErrorf(node, "expected a list of exactly two operands")
	}
	lhs, err := DecodeOpNode(node.Content[0])
	if err != nil {
		return nil, nil, err
	}
	rhs, err := DecodeOpNode(node.Content[1])
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func decodeName(node *yaml.Node) (ir.Name, error) {
	if node.Kind != yaml.ScalarNode {
		return "", decodeErrorf(node, "expected a name")
	}
	name, err := ir.ParseName(node.Value)
	if err != nil {
		return "", decodeErrorf(node, "%v", err)
	}
	return name, nil
}

func decodeAttribute(node *yaml.Node) (Attribute, error) {
	if node.Kind != yaml.ScalarNode {
		return Attribute{}, decodeErrorf(node, "expected an attribute index or name")
	}
	if node.ShortTag() == "!!int" {
		i, err := strconv.Atoi(node.Value)
		if err != nil || i < 0 {
			return Attribute{}, decodeErrorf(node, "invalid attribute index %q", node.Value)
		}
		return Index(i), nil
	}
	name, err := decodeName(node)
	if err != nil {
		return Attribute{}, err
	}
	return Named(name), nil
}

func decodeAttributes(node *yaml.Node) ([]Attribute, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return nil, decodeErrorf(node, "expected a non-empty attribute list")
	}
	out := make([]Attribute, len(node.Content))
	for i, item := range node.Content {
		a, err := decodeAttribute(item)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func decodeProjectedAttribute(node *yaml.Node) (ProjectedAttribute, error) {
	if node.Kind == yaml.MappingNode {
		v, err := decodeLiteral(node)
		if err != nil {
			return ProjectedAttribute{}, err
		}
		return Lit(v), nil
	}
	a, err := decodeAttribute(node)
	if err != nil {
		return ProjectedAttribute{}, err
	}
	return Ref(a), nil
}

func decodeProjected(node *yaml.Node) ([]ProjectedAttribute, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return nil, decodeErrorf(node, "expected a non-empty attribute list")
	}
	out := make([]ProjectedAttribute, len(node.Content))
	for i, item := range node.Content {
		p, err := decodeProjectedAttribute(item)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func decodeRenames(node *yaml.Node) ([]RenamePair, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) == 0 {
		return nil, decodeErrorf(node, "expected a non-empty mapping of attribute to new name")
	}
	pairs := make([]RenamePair, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		from, err := decodeAttribute(node.Content[i])
		if err != nil {
			return nil, err
		}
		to, err := decodeName(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, RenamePair{From: from, To: to})
	}
	return pairs, nil
}

// decodeLiteral decodes {const: <scalar>} or {<domain>: <text>}.
func decodeLiteral(node *yaml.Node) (ir.Value, error) {
	key, val, err := singleEntry(node, "literal")
	if err != nil {
		return nil, err
	}
	if val.Kind != yaml.ScalarNode {
		return nil, decodeErrorf(val, "literal must be a scalar")
	}
	if key.Value == "const" {
		switch val.ShortTag() {
		case "!!bool":
			var b bool
			if err := val.Decode(&b); err != nil {
				return nil, decodeErrorf(val, "%v", err)
			}
			return ir.Boolean(b), nil
		case "!!int":
			var n int64
			if err := val.Decode(&n); err != nil {
				return nil, decodeErrorf(val, "%v", err)
			}
			return ir.Integer(n), nil
		case "!!float":
			var f float64
			if err := val.Decode(&f); err != nil {
				return nil, decodeErrorf(val, "%v", err)
			}
			return ir.Float(f), nil
		case "!!str":
			return ir.String(val.Value), nil
		default:
			return nil, decodeErrorf(val, "unsupported literal %q", val.Value)
		}
	}
	d, err := ir.ParseDomain(key.Value)
	if err != nil {
		return nil, decodeErrorf(key, "unknown literal domain %q", key.Value)
	}
	v, err := ir.ParseValue(d, val.Value)
	if err != nil {
		return nil, decodeErrorf(val, "%v", err)
	}
	return v, nil
}

func singleEntry(node *yaml.Node, what string) (*yaml.Node, *yaml.Node, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, nil, decodeErrorf(node, "%s must be a mapping with exactly one key", what)
	}
	return node.Content[0], node.Content[1], nil
}

// fieldsOf reads a mapping whose keys must be exactly the given names.
func fieldsOf(node *yaml.Node, names ...string) (map[string]*yaml.Node, error) {
	if node.Kind != yaml.MappingNode {
		return nil, decodeErrorf(node, "expected a mapping with keys %v", names)
	}
	out := make(map[string]*yaml.Node, len(names))
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		known := false
		for _, n := range names {
			if key.Value == n {
				known = true
				break
			}
		}
		if !known {
			return nil, decodeErrorf(key, "unknown field %q", key.Value)
		}
		out[key.Value] = node.Content[i+1]
	}
	for _, n := range names {
		if _, ok := out[n]; !ok {
			return nil, decodeErrorf(node, "missing field %q", n)
		}
	}
	return out, nil
}

func mappingHas(node *yaml.Node, key string) bool {
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func parseSetOperator(s string) (SetOperator, bool) {
	for op, key := range setOperatorKeys {
		if key == s {
			return op, true
		}
	}
	return 0, false
}

// MarshalList encodes an expression list as a YAML document that
// DecodeList reads back to an equal tree.
func MarshalList(list ExpressionList) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range list {
		entry := &yaml.Node{Kind: yaml.MappingNode}
		if e.IsNamed() {
			entry.Content = append(entry.Content, scalar("bind"), scalar(e.Name.String()))
		}
		opNode, err := EncodeOpNode(e.Op)
		if err != nil {
			return nil, err
		}
		entry.Content = append(entry.Content, scalar("query"), opNode)
		seq.Content = append(seq.Content, entry)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeOpNode encodes an operator tree as a YAML node.
func EncodeOpNode(op RelationalOp) (*yaml.Node, error) {
	switch node := op.(type) {
	case *Relation:
		return scalar(node.name.String()), nil
	case *SetOperation:
		pair, err := encodePair(node.lhs, node.rhs)
		if err != nil {
			return nil, err
		}
		return entry(node.op.String(), pair), nil
	case *Selection:
		from, err := EncodeOpNode(node.rhs)
		if err != nil {
			return nil, err
		}
		where, err := EncodeTermNode(node.criteria)
		if err != nil {
			return nil, err
		}
		return entry("select", mapping("where", where, "from", from)), nil
	case *Projection:
		from, err := EncodeOpNode(node.rhs)
		if err != nil {
			return nil, err
		}
		attrs := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, a := range node.attributes {
			attrs.Content = append(attrs.Content, encodeProjected(a))
		}
		return entry("project", mapping("attributes", attrs, "from", from)), nil
	case *Rename:
		from, err := EncodeOpNode(node.rhs)
		if err != nil {
			return nil, err
		}
		names := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		for _, p := range node.renames {
			names.Content = append(names.Content, encodeAttribute(p.From), scalar(p.To.String()))
		}
		return entry("rename", mapping("names", names, "from", from)), nil
	case *Order:
		from, err := EncodeOpNode(node.rhs)
		if err != nil {
			return nil, err
		}
		return entry("order", mapping("by", encodeAttributes(node.attributes), "from", from)), nil
	case *Group:
		from, err := EncodeOpNode(node.rhs)
		if err != nil {
			return nil, err
		}
		return entry("group", mapping("by", encodeAttributes(node.attributes), "from", from)), nil
	case *Join:
		if node.criteria == nil {
			pair, err := encodePair(node.lhs, node.rhs)
			if err != nil {
				return nil, err
			}
			return entry("join", pair), nil
		}
		on, err := EncodeTermNode(node.criteria)
		if err != nil {
			return nil, err
		}
		lhs, err := EncodeOpNode(node.lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := EncodeOpNode(node.rhs)
		if err != nil {
			return nil, err
		}
		return entry("theta", mapping("on", on, "lhs", lhs, "rhs", rhs)), nil
	default:
		return nil, fmt.Errorf("unsupported operator type: %T", op)
	}
}

// EncodeTermNode encodes a term as a YAML node.
func EncodeTermNode(t Term) (*yaml.Node, error) {
	switch term := t.(type) {
	case ConstantTerm:
		if b, ok := term.Value.(ir.Boolean); ok {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(b))}, nil
		}
		return encodeLiteral(term.Value), nil
	case ExistsTerm:
		return entry("exists", encodeAttribute(term.Attribute)), nil
	case AtomTerm:
		args := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		args.Content = append(args.Content, encodeAttribute(term.LHS), encodeProjected(term.RHS))
		return entry(term.Op.String(), args), nil
	case NegateTerm:
		inner, err := EncodeTermNode(term.Term)
		if err != nil {
			return nil, err
		}
		return entry("not", inner), nil
	case AndTerm, OrTerm:
		key := "and"
		var operands []Term
		if _, ok := term.(OrTerm); ok {
			key = "or"
			operands = disjuncts(t)
		} else {
			operands = Conjuncts(t)
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, o := range operands {
			n, err := EncodeTermNode(o)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return entry(key, seq), nil
	default:
		return nil, fmt.Errorf("unsupported term type: %T", t)
	}
}

// disjuncts flattens left-nested OrTerms the way Or builds them.
func disjuncts(t Term) []Term {
	or, ok := t.(OrTerm)
	if !ok {
		return []Term{t}
	}
	return append(disjuncts(or.LHS), disjuncts(or.RHS)...)
}

func encodePair(lhs, rhs RelationalOp) (*yaml.Node, error) {
	l, err := EncodeOpNode(lhs)
	if err != nil {
		return nil, err
	}
	r, err := EncodeOpNode(rhs)
	if err != nil {
		return nil, err
	}
	return &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{l, r}}, nil
}

func encodeAttribute(a Attribute) *yaml.Node {
	if i, ok := a.AsIndex(); ok {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(i)}
	}
	return scalar(a.name.String())
}

func encodeAttributes(attrs []Attribute) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, a := range attrs {
		seq.Content = append(seq.Content, encodeAttribute(a))
	}
	return seq
}

func encodeProjected(p ProjectedAttribute) *yaml.Node {
	if v, ok := p.AsConstant(); ok {
		return encodeLiteral(v)
	}
	return encodeAttribute(p.attr)
}

func encodeLiteral(v ir.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	switch val := v.(type) {
	case ir.Integer:
		n.Content = []*yaml.Node{scalar("const"), {Kind: yaml.ScalarNode, Tag: "!!int", Value: val.String()}}
	case ir.Boolean:
		n.Content = []*yaml.Node{scalar("const"), {Kind: yaml.ScalarNode, Tag: "!!bool", Value: val.String()}}
	case ir.String:
		n.Content = []*yaml.Node{scalar("const"), {Kind: yaml.ScalarNode, Tag: "!!str", Value: string(val)}}
	default:
		n.Content = []*yaml.Node{scalar(v.Domain().String()), {Kind: yaml.ScalarNode, Tag: "!!str", Value: ir.Text(v)}}
	}
	return n
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func entry(key string, val *yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar(key), val}}
}

func mapping(kv ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < len(kv); i += 2 {
		n.Content = append(n.Content, scalar(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return n
}
