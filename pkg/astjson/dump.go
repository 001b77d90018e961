package astjson

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

const yamlIndent = 2

// DumpYAML writes t as block-style YAML with the wire layout.
func DumpYAML(w io.Writer, t *tree.Tree) error {
	var wire bytes.Buffer

	err := Encode(&wire, t)
	if err != nil {
		return err
	}

	// JSON is YAML; decoding into a yaml.Node keeps key order.
	var doc yaml.Node

	err = yaml.Unmarshal(wire.Bytes(), &doc)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err = enc.Encode(&doc)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// blockStyle drops the flow and quoting styles inherited from JSON.
func blockStyle(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		// Empty collections stay as {} and [].
		if len(node.Content) > 0 {
			node.Style = 0
		}
	case yaml.ScalarNode:
		node.Style = 0
	case yaml.DocumentNode, yaml.AliasNode:
	}

	for _, child := range node.Content {
		blockStyle(child)
	}
}

// DumpTree writes an indented outline of t, one node per line:
//
//	Module
//	  body: FunctionDef name="f"
//	    args: arguments
func DumpTree(w io.Writer, t *tree.Tree) error {
	if !t.Valid(t.Root()) {
		return ErrEmptyTree
	}

	bw := bufio.NewWriter(w)
	depth := 0

	err := tree.Walk(t, t.Root(), tree.VisitorFuncs{
		OnEnter: func(t *tree.Tree, id tree.NodeID) error {
			writeOutlineLine(bw, t.Node(id), depth)
			depth++

			return nil
		},
		OnExit: func(*tree.Tree, tree.NodeID) error {
			depth--

			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	err = bw.Flush()
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	return nil
}

func writeOutlineLine(bw *bufio.Writer, node *tree.Node, depth int) {
	bw.WriteString(strings.Repeat("  ", depth))

	if node.Slot != "" {
		bw.WriteString(node.Slot)
		bw.WriteString(": ")
	}

	bw.WriteString(node.Tag)

	for _, key := range node.Fields.Keys() {
		value, _ := node.Fields.Get(key)

		switch v := value.(type) {
		case string:
			fmt.Fprintf(bw, " %s=%q", key, v)
		case tree.EmptyList:
			fmt.Fprintf(bw, " %s=[]", key)
		case nil:
			fmt.Fprintf(bw, " %s=None", key)
		default:
			fmt.Fprintf(bw, " %s=%v", key, v)
		}
	}

	bw.WriteByte('\n')
}
