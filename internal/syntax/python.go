//go:build cgo

package syntax

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// AnalyzePython parses a python snippet with tree-sitter and reports its
// top-level statements and assignment targets.
func AnalyzePython(code string) (*PythonAnalysis, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_python.Language())); err != nil {
		return nil, fmt.Errorf("failed to set parser language: %w", err)
	}

	source := []byte(code)
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse code: parser returned nil tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("failed to get root node from parsed tree")
	}
	if root.HasError() {
		return &PythonAnalysis{Valid: false}, nil
	}

	a := &PythonAnalysis{Valid: true}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt == nil || stmt.Kind() == "comment" {
			continue
		}
		a.Statements++
		if stmt.Kind() == "expression_statement" {
			a.TopLevelTargets = append(a.TopLevelTargets, statementTargets(stmt, source)...)
		}
	}

	a.Assigned = collectAssigned(root, source)
	return a, nil
}

// statementTargets returns the names bound by the assignments of one
// expression statement.
func statementTargets(stmt *tree_sitter.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child != nil && child.Kind() == "assignment" {
			names = append(names, assignmentTargets(child, source)...)
		}
	}
	return names
}

// assignmentTargets follows chained assignments (a = b = 1). Annotated
// assignments (x: int = 1) bind nothing here, with or without a value.
func assignmentTargets(node *tree_sitter.Node, source []byte) []string {
	var names []string
	for isPlainAssignment(node) {
		right := node.ChildByFieldName("right")
		if right == nil {
			break
		}
		names = appendPatternNames(names, node.ChildByFieldName("left"), source)
		node = right
	}
	return names
}

func isPlainAssignment(node *tree_sitter.Node) bool {
	return node != nil && node.Kind() == "assignment" && node.ChildByFieldName("type") == nil
}

func appendPatternNames(names []string, pattern *tree_sitter.Node, source []byte) []string {
	if pattern == nil {
		return names
	}
	switch pattern.Kind() {
	case "identifier":
		return append(names, pattern.Utf8Text(source))
	case "pattern_list", "tuple_pattern", "list_pattern", "list_splat_pattern", "parenthesized_expression":
		for i := uint(0); i < pattern.NamedChildCount(); i++ {
			names = appendPatternNames(names, pattern.NamedChild(i), source)
		}
	}
	return names
}

// collectAssigned walks every node, nested blocks included.
func collectAssigned(root *tree_sitter.Node, source []byte) []string {
	var names []string
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if isPlainAssignment(n) {
			if right := n.ChildByFieldName("right"); right != nil {
				names = appendPatternNames(names, n.ChildByFieldName("left"), source)
			}
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if child := n.NamedChild(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return names
}
