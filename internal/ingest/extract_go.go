package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// goExtractor emits interface units and references from Go source files.
type goExtractor struct{}

func (e *goExtractor) extract(root *tree_sitter.Node, source []byte, filePath string) ([]graph.Node, []graph.Edge) {
	var nodes []graph.Node
	var edges []graph.Edge

	pkg := goPackageName(root, source)
	mod := finishNode(graph.Node{
		Kind:       graph.NodeKindModule,
		Name:       pkg,
		FilePath:   filePath,
		ModulePath: pkg,
		StartLine:  1,
		EndLine:    int(root.EndPosition().Row) + 1,
		Visibility: "public",
	}, string(source))
	nodes = append(nodes, mod)

	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, source, filePath, pkg, mod.ID, &nodes, &edges)
	return nodes, edges
}

// walk descends the AST. owner is the node ID call edges attach to: the
// enclosing function or method, or the file's module node at top level.
func (e *goExtractor) walk(
	cursor *tree_sitter.TreeCursor,
	source []byte,
	filePath, pkg, owner string,
	nodes *[]graph.Node,
	edges *[]graph.Edge,
) {
	node := cursor.Node()
	childOwner := owner

	switch node.Kind() {
	case "function_declaration", "method_declaration":
		if sym, ok := e.extractFunction(node, source, filePath, pkg); ok {
			*nodes = append(*nodes, sym)
			childOwner = sym.ID
		}

	case "type_declaration":
		e.extractTypeDeclaration(node, source, filePath, pkg, nodes, edges)

	case "const_declaration":
		e.extractConsts(node, source, filePath, pkg, nodes)

	case "import_spec":
		if target := goImportPath(node, source); target != "" {
			// Keyed by the imported package's name so cross-file module
			// resolution can match it.
			*edges = append(*edges, graph.Edge{
				SourceID: owner,
				TargetID: lastSegment(target),
				Type:     graph.EdgeDependsOn,
			})
		}

	case "call_expression":
		if callee := goCallee(node, source); callee != "" {
			*edges = append(*edges, graph.Edge{
				SourceID: owner,
				TargetID: callee,
				Type:     graph.EdgeCalls,
			})
		}
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, source, filePath, pkg, childOwner, nodes, edges)
		for cursor.GotoNextSibling() {
			e.walk(cursor, source, filePath, pkg, childOwner, nodes, edges)
		}
		cursor.GotoParent()
	}
}

func (e *goExtractor) extractFunction(node *tree_sitter.Node, source []byte, filePath, pkg string) (graph.Node, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return graph.Node{}, false
	}
	name := nameNode.Utf8Text(source)
	start, end := lineRange(node)

	sym := graph.Node{
		Kind:       graph.NodeKindFunction,
		Name:       name,
		FilePath:   filePath,
		ModulePath: pkg,
		StartLine:  start,
		EndLine:    end,
		Visibility: goVisibility(name),
		Doc:        docFor(node, source),
	}
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		sym.Kind = graph.NodeKindMethod
		sym.Signature.Receiver = strings.Trim(recv.Utf8Text(source), "()")
	}
	sym.Signature.Params = goParams(node.ChildByFieldName("parameters"), source)
	sym.Signature.Returns = goReturns(node.ChildByFieldName("result"), source)
	sym.Types.Generics = goGenerics(node.ChildByFieldName("type_parameters"), source)
	return finishNode(sym, node.Utf8Text(source)), true
}

func (e *goExtractor) extractTypeDeclaration(
	node *tree_sitter.Node,
	source []byte,
	filePath, pkg string,
	nodes *[]graph.Node,
	edges *[]graph.Edge,
) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(source)
		start, end := lineRange(spec)

		sym := graph.Node{
			Kind:       graph.NodeKindType,
			Name:       name,
			FilePath:   filePath,
			ModulePath: pkg,
			StartLine:  start,
			EndLine:    end,
			Visibility: goVisibility(name),
			Doc:        docFor(node, source),
		}
		sym.Types.Generics = goGenerics(spec.ChildByFieldName("type_parameters"), source)

		typeNode := spec.ChildByFieldName("type")
		if typeNode != nil && typeNode.Kind() == "interface_type" {
			sym.Kind = graph.NodeKindTrait
		}
		sym = finishNode(sym, spec.Utf8Text(source))
		*nodes = append(*nodes, sym)

		if typeNode == nil {
			continue
		}
		switch typeNode.Kind() {
		case "struct_type":
			for _, ref := range goFieldTypes(typeNode, source) {
				*edges = append(*edges, graph.Edge{SourceID: sym.ID, TargetID: ref, Type: graph.EdgeUses})
			}
		case "interface_type":
			for _, embedded := range goEmbeddedInterfaces(typeNode, source) {
				*edges = append(*edges, graph.Edge{SourceID: sym.ID, TargetID: embedded, Type: graph.EdgeInherits})
			}
		}
	}
}

func (e *goExtractor) extractConsts(node *tree_sitter.Node, source []byte, filePath, pkg string, nodes *[]graph.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec == nil || spec.Kind() != "const_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(source)
		start, end := lineRange(spec)

		sym := graph.Node{
			Kind:       graph.NodeKindConstant,
			Name:       name,
			FilePath:   filePath,
			ModulePath: pkg,
			StartLine:  start,
			EndLine:    end,
			Visibility: goVisibility(name),
		}
		if typ := spec.ChildByFieldName("type"); typ != nil {
			sym.Signature.Returns = []string{typ.Utf8Text(source)}
		}
		*nodes = append(*nodes, finishNode(sym, spec.Utf8Text(source)))
	}
}

func goPackageName(root *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child != nil && child.Kind() == "package_clause" {
			if name := child.NamedChild(0); name != nil {
				return name.Utf8Text(source)
			}
		}
	}
	return "main"
}

func goParams(list *tree_sitter.Node, source []byte) []graph.Param {
	if list == nil {
		return nil
	}
	var out []graph.Param
	for i := uint(0); i < list.NamedChildCount(); i++ {
		decl := list.NamedChild(i)
		if decl == nil {
			continue
		}
		switch decl.Kind() {
		case "parameter_declaration", "variadic_parameter_declaration":
		default:
			continue
		}
		typ := ""
		if t := decl.ChildByFieldName("type"); t != nil {
			typ = t.Utf8Text(source)
		}
		name := ""
		if n := decl.ChildByFieldName("name"); n != nil {
			name = n.Utf8Text(source)
		}
		out = append(out, graph.Param{Name: name, Type: typ})
	}
	return out
}

func goReturns(result *tree_sitter.Node, source []byte) []string {
	if result == nil {
		return nil
	}
	if result.Kind() != "parameter_list" {
		return []string{result.Utf8Text(source)}
	}
	var out []string
	for _, p := range goParams(result, source) {
		out = append(out, p.Type)
	}
	return out
}

func goGenerics(list *tree_sitter.Node, source []byte) []graph.GenericParam {
	if list == nil {
		return nil
	}
	var out []graph.GenericParam
	for i := uint(0); i < list.NamedChildCount(); i++ {
		decl := list.NamedChild(i)
		if decl == nil || decl.Kind() != "type_parameter_declaration" {
			continue
		}
		gp := graph.GenericParam{}
		if n := decl.ChildByFieldName("name"); n != nil {
			gp.Name = n.Utf8Text(source)
		}
		if c := decl.ChildByFieldName("type"); c != nil {
			gp.Bounds = []string{c.Utf8Text(source)}
		}
		if gp.Name != "" {
			out = append(out, gp)
		}
	}
	return out
}

// goFieldTypes collects referenced type names from struct fields, keeping
// only plain identifiers after stripping pointer and slice markers.
func goFieldTypes(structType *tree_sitter.Node, source []byte) []string {
	body := structType.NamedChild(0)
	if body == nil || body.Kind() != "field_declaration_list" {
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

func goEmbeddedInterfaces(ifaceType *tree_sitter.Node, source []byte) []string {
	var out []string
	for i := uint(0); i < ifaceType.NamedChildCount(); i++ {
		elem := ifaceType.NamedChild(i)
		if elem == nil || elem.Kind() != "type_elem" {
			continue
		}
		if name, ok := bareTypeName(elem.Utf8Text(source)); ok {
			out = append(out, name)
		}
	}
	return out
}

func goImportPath(node *tree_sitter.Node, source []byte) string {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "interpreted_string_literal" {
				pathNode = child
				break
			}
		}
	}
	if pathNode == nil {
		return ""
	}
	return strings.Trim(pathNode.Utf8Text(source), "\"")
}

func goCallee(node *tree_sitter.Node, source []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier", "selector_expression":
		return fn.Utf8Text(source)
	}
	return ""
}

func goVisibility(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return "public"
	}
	return "private"
}

// bareTypeName strips pointer, slice and reference markers and accepts only
// simple identifiers; qualified or composite types are not resolvable here.
func bareTypeName(text string) (string, bool) {
	t := strings.TrimSpace(text)
	for {
		switch {
		case strings.HasPrefix(t, "*"), strings.HasPrefix(t, "&"):
			t = t[1:]
		case strings.HasPrefix(t, "[]"):
			t = t[2:]
		default:
			if t == "" {
				return "", false
			}
			for _, r := range t {
				if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
					return "", false
				}
			}
			return t, true
		}
	}
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
