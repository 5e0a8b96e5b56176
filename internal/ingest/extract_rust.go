package ingest

import (
	"path"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// rustExtractor emits interface units and references from Rust source
// files, including the type-system metadata the level-2 projection carries:
// generic parameters with bounds, lifetimes, where-clauses and trait impls.
type rustExtractor struct{}

func (e *rustExtractor) extract(root *tree_sitter.Node, source []byte, filePath string) ([]graph.Node, []graph.Edge) {
	var nodes []graph.Node
	var edges []graph.Edge

	modName := rustModuleName(filePath)
	mod := finishNode(graph.Node{
		Kind:       graph.NodeKindModule,
		Name:       modName,
		FilePath:   filePath,
		ModulePath: modName,
		StartLine:  1,
		EndLine:    int(root.EndPosition().Row) + 1,
		Visibility: "public",
	}, string(source))
	nodes = append(nodes, mod)

	implements := make(map[string][]string) // type name -> trait names
	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, source, filePath, modName, mod.ID, &nodes, &edges, implements)

	// Trait impls observed in this file are folded back onto the type's own
	// metadata when the type is defined here too.
	for i, n := range nodes {
		if n.Kind != graph.NodeKindType {
			continue
		}
		traits, ok := implements[n.Name]
		if !ok {
			continue
		}
		n.Types.Implements = traits
		n.SignatureHash = graph.HashSignature(n)
		nodes[i] = n
	}
	return nodes, edges
}

func (e *rustExtractor) walk(
	cursor *tree_sitter.TreeCursor,
	source []byte,
	filePath, modName, owner string,
	nodes *[]graph.Node,
	edges *[]graph.Edge,
	implements map[string][]string,
) {
	node := cursor.Node()
	childOwner := owner

	switch node.Kind() {
	case "function_item":
		if sym, ok := e.extractFunction(node, source, filePath, modName, ""); ok {
			*nodes = append(*nodes, sym)
			childOwner = sym.ID
		}

	case "struct_item", "enum_item", "type_item":
		if sym, ok := e.extractType(node, source, filePath, modName); ok {
			*nodes = append(*nodes, sym)
			if node.Kind() == "struct_item" {
				for _, ref := range rustFieldTypes(node, source) {
					*edges = append(*edges, graph.Edge{SourceID: sym.ID, TargetID: ref, Type: graph.EdgeUses})
				}
			}
		}

	case "trait_item":
		if sym, ok := e.extractTrait(node, source, filePath, modName); ok {
			*nodes = append(*nodes, sym)
			for _, super := range sym.Types.TraitBounds {
				*edges = append(*edges, graph.Edge{SourceID: sym.ID, TargetID: super, Type: graph.EdgeInherits})
			}
			childOwner = sym.ID
		}

	case "impl_item":
		e.extractImpl(node, source, filePath, modName, nodes, edges, implements)
		// Methods were handled above; skip the subtree so the generic walk
		// does not re-emit them as free functions.
		return

	case "use_declaration":
		if target := rustUseRoot(node, source); target != "" {
			*edges = append(*edges, graph.Edge{
				SourceID: owner,
				TargetID: target,
				Type:     graph.EdgeDependsOn,
			})
		}

	case "call_expression":
		if callee := rustCallee(node, source); callee != "" {
			*edges = append(*edges, graph.Edge{
				SourceID: owner,
				TargetID: callee,
				Type:     graph.EdgeCalls,
			})
		}
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, source, filePath, modName, childOwner, nodes, edges, implements)
		for cursor.GotoNextSibling() {
			e.walk(cursor, source, filePath, modName, childOwner, nodes, edges, implements)
		}
		cursor.GotoParent()
	}
}

func (e *rustExtractor) extractFunction(node *tree_sitter.Node, source []byte, filePath, modName, receiver string) (graph.Node, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return graph.Node{}, false
	}
	start, end := lineRange(node)

	sym := graph.Node{
		Kind:       graph.NodeKindFunction,
		Name:       nameNode.Utf8Text(source),
		FilePath:   filePath,
		ModulePath: modName,
		StartLine:  start,
		EndLine:    end,
		Visibility: rustVisibility(node),
		Doc:        docFor(node, source),
	}
	if receiver != "" {
		sym.Kind = graph.NodeKindMethod
		sym.Signature.Receiver = receiver
	}
	sym.Signature.Params = rustParams(node.ChildByFieldName("parameters"), source)
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sym.Signature.Returns = []string{ret.Utf8Text(source)}
	}
	sym.Types.Generics, sym.Types.Lifetimes = rustTypeParams(node.ChildByFieldName("type_parameters"), source)
	sym.Types.WhereClauses = rustWhereClauses(node, source)
	return finishNode(sym, node.Utf8Text(source)), true
}

func (e *rustExtractor) extractType(node *tree_sitter.Node, source []byte, filePath, modName string) (graph.Node, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return graph.Node{}, false
	}
	start, end := lineRange(node)

	sym := graph.Node{
		Kind:       graph.NodeKindType,
		Name:       nameNode.Utf8Text(source),
		FilePath:   filePath,
		ModulePath: modName,
		StartLine:  start,
		EndLine:    end,
		Visibility: rustVisibility(node),
		Doc:        docFor(node, source),
	}
	sym.Types.Generics, sym.Types.Lifetimes = rustTypeParams(node.ChildByFieldName("type_parameters"), source)
	sym.Types.WhereClauses = rustWhereClauses(node, source)
	return finishNode(sym, node.Utf8Text(source)), true
}

func (e *rustExtractor) extractTrait(node *tree_sitter.Node, source []byte, filePath, modName string) (graph.Node, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return graph.Node{}, false
	}
	start, end := lineRange(node)

	sym := graph.Node{
		Kind:       graph.NodeKindTrait,
		Name:       nameNode.Utf8Text(source),
		FilePath:   filePath,
		ModulePath: modName,
		StartLine:  start,
		EndLine:    end,
		Visibility: rustVisibility(node),
		Doc:        docFor(node, source),
	}
	sym.Types.Generics, sym.Types.Lifetimes = rustTypeParams(node.ChildByFieldName("type_parameters"), source)
	sym.Types.TraitBounds = rustBounds(node.ChildByFieldName("bounds"), source)
	sym.Types.WhereClauses = rustWhereClauses(node, source)
	return finishNode(sym, node.Utf8Text(source)), true
}

// extractImpl walks an impl block: a trait impl yields an Implements edge
// and the block's functions become methods of the implementing type.
func (e *rustExtractor) extractImpl(
	node *tree_sitter.Node,
	source []byte,
	filePath, modName string,
	nodes *[]graph.Node,
	edges *[]graph.Edge,
	implements map[string][]string,
) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	typeName := rustBaseName(typeNode.Utf8Text(source))

	if traitNode := node.ChildByFieldName("trait"); traitNode != nil {
		traitName := rustBaseName(traitNode.Utf8Text(source))
		if traitName != "" && typeName != "" {
			*edges = append(*edges, graph.Edge{
				SourceID: typeName,
				TargetID: traitName,
				Type:     graph.EdgeImplements,
			})
			implements[typeName] = append(implements[typeName], traitName)
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		if child == nil || child.Kind() != "function_item" {
			continue
		}
		sym, ok := e.extractFunction(child, source, filePath, modName, typeName)
		if !ok {
			continue
		}
		*nodes = append(*nodes, sym)
		for _, callee := range rustCallsIn(child, source) {
			*edges = append(*edges, graph.Edge{SourceID: sym.ID, TargetID: callee, Type: graph.EdgeCalls})
		}
	}
}

func rustParams(list *tree_sitter.Node, source []byte) []graph.Param {
	if list == nil {
		return nil
	}
	var out []graph.Param
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil || p.Kind() != "parameter" {
			continue
		}
		param := graph.Param{}
		if n := p.ChildByFieldName("pattern"); n != nil {
			param.Name = n.Utf8Text(source)
		}
		if t := p.ChildByFieldName("type"); t != nil {
			param.Type = t.Utf8Text(source)
		}
		out = append(out, param)
	}
	return out
}

// rustTypeParams splits a type_parameters list into generic and lifetime
// parameters, carrying inline bounds on constrained entries.
func rustTypeParams(list *tree_sitter.Node, source []byte) ([]graph.GenericParam, []graph.LifetimeParam) {
	if list == nil {
		return nil, nil
	}
	var generics []graph.GenericParam
	var lifetimes []graph.LifetimeParam
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "lifetime":
			lifetimes = append(lifetimes, graph.LifetimeParam{Name: p.Utf8Text(source)})
		case "type_identifier":
			generics = append(generics, graph.GenericParam{Name: p.Utf8Text(source)})
		case "constrained_type_parameter":
			left := p.ChildByFieldName("left")
			bounds := rustBounds(p.ChildByFieldName("bounds"), source)
			if left == nil {
				continue
			}
			if left.Kind() == "lifetime" {
				lifetimes = append(lifetimes, graph.LifetimeParam{Name: left.Utf8Text(source), Outlives: bounds})
			} else {
				generics = append(generics, graph.GenericParam{Name: left.Utf8Text(source), Bounds: bounds})
			}
		}
	}
	return generics, lifetimes
}

func rustBounds(bounds *tree_sitter.Node, source []byte) []string {
	if bounds == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < bounds.NamedChildCount(); i++ {
		b := bounds.NamedChild(i)
		if b == nil {
			continue
		}
		out = append(out, b.Utf8Text(source))
	}
	return out
}

func rustWhereClauses(item *tree_sitter.Node, source []byte) []string {
	var out []string
	for i := uint(0); i < item.NamedChildCount(); i++ {
		child := item.NamedChild(i)
		if child == nil || child.Kind() != "where_clause" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			pred := child.NamedChild(j)
			if pred != nil && pred.Kind() == "where_predicate" {
				out = append(out, pred.Utf8Text(source))
			}
		}
	}
	return out
}

func rustFieldTypes(structItem *tree_sitter.Node, source []byte) []string {
	body := structItem.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < body.NamedChildCount(); i++ {
		field := body.NamedChild(i)
		if field == nil || field.Kind() != "field_declaration" {
			continue
		}
		typ := field.ChildByFieldName("type")
		if typ == nil {
			continue
		}
		if name, ok := bareTypeName(typ.Utf8Text(source)); ok {
			out = append(out, name)
		}
	}
	return out
}

// rustCallsIn collects call targets inside one function body.
func rustCallsIn(fn *tree_sitter.Node, source []byte) []string {
	var out []string
	cursor := fn.Walk()
	defer cursor.Close()

	var visit func()
	visit = func() {
		node := cursor.Node()
		if node.Kind() == "call_expression" {
			if callee := rustCallee(node, source); callee != "" {
				out = append(out, callee)
			}
		}
		if cursor.GotoFirstChild() {
			visit()
			for cursor.GotoNextSibling() {
				visit()
			}
			cursor.GotoParent()
		}
	}
	visit()
	return out
}

func rustCallee(node *tree_sitter.Node, source []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier", "scoped_identifier", "field_expression":
		return fn.Utf8Text(source)
	}
	return ""
}

// rustUseRoot returns the first path segment of a use declaration. Crate
// and module names resolve against module nodes; deeper segments cannot.
func rustUseRoot(node *tree_sitter.Node, source []byte) string {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return ""
	}
	text := arg.Utf8Text(source)
	text = strings.TrimPrefix(text, "crate::")
	if i := strings.Index(text, "::"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func rustVisibility(node *tree_sitter.Node) string {
	if node.ChildCount() == 0 {
		return "private"
	}
	first := node.Child(0)
	if first != nil && first.Kind() == "visibility_modifier" {
		return "public"
	}
	return "private"
}

// rustBaseName strips generic arguments and path qualifiers from a type or
// trait reference: "codec::Reader<'a, T>" becomes "Reader".
func rustBaseName(text string) string {
	t := strings.TrimSpace(text)
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "::"); i >= 0 {
		t = t[i+2:]
	}
	return strings.TrimSpace(t)
}

// rustModuleName derives the module name from the file path: mod.rs takes
// its directory's name, everything else its own stem.
func rustModuleName(filePath string) string {
	base := path.Base(filePath)
	stem := strings.TrimSuffix(base, ".rs")
	if stem == "mod" || stem == "lib" || stem == "main" {
		dir := path.Base(path.Dir(filePath))
		if dir != "." && dir != "/" && dir != "src" {
			return dir
		}
		if stem == "mod" {
			return dir
		}
	}
	return stem
}
