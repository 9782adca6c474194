// Package help builds command help trees and renders them as indented text.
package help

import (
	"slices"
	"strings"
)

const (
	baseIndent  = "    "
	depthIndent = "        "
)

// Option describes one parameter accepted by a command.
type Option struct {
	Name        string
	Kind        string
	Description string
	Required    bool
}

// NewOption returns an optional parameter description.
func NewOption(name, kind, description string) Option {
	return Option{Name: name, Kind: kind, Description: description}
}

// WithRequired returns a copy of o with the required flag set.
func (o Option) WithRequired(required bool) Option {
	o.Required = required
	return o
}

func (o Option) label() string {
	if o.Required {
		return "Required"
	}
	return "Optional"
}

// Node is one command or subcommand in a help tree.
//
// A node owns its options and children. Children are attached bottom-up and
// the caller must not attach a node to itself or to one of its descendants.
type Node struct {
	name        string
	description string
	options     []Option
	children    []*Node
}

// New returns an empty node.
func New() *Node {
	return &Node{}
}

func (n *Node) SetName(name string) *Node {
	n.name = name
	return n
}

func (n *Node) SetDescription(description string) *Node {
	n.description = description
	return n
}

// AddOption appends opt after the options already present.
func (n *Node) AddOption(opt Option) *Node {
	n.options = append(n.options, opt)
	return n
}

// AddChild appends child as the last subcommand. A nil child is ignored.
func (n *Node) AddChild(child *Node) *Node {
	if child == nil {
		return n
	}
	n.children = append(n.children, child)
	return n
}

func (n *Node) Name() string        { return n.name }
func (n *Node) Description() string { return n.description }

// Options returns a copy of the node's options in insertion order.
func (n *Node) Options() []Option {
	return slices.Clone(n.options)
}

// Children returns a copy of the node's subcommands in insertion order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Child returns the direct subcommand with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Render returns the help text for n rendered as a root.
func (n *Node) Render() string {
	return n.RenderAt(0)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return n.Render()
}

// RenderAt returns the help text for n as if it were nested depth levels
// below the root. Negative depths render as the root.
func (n *Node) RenderAt(depth int) string {
	if depth < 0 {
		depth = 0
	}
	var sb strings.Builder
	n.write(&sb, depth)
	return sb.String()
}

// Indentation returns the prefix used for section lines at depth.
func Indentation(depth int) string {
	if depth < 0 {
		depth = 0
	}
	return baseIndent + strings.Repeat(depthIndent, depth)
}

// write renders n into sb. Depth is passed down the recursion and never
// stored on the node, so one tree may be rendered from many goroutines.
func (n *Node) write(sb *strings.Builder, depth int) {
	indent := Indentation(depth)

	sb.WriteString(n.name)
	sb.WriteString(" -- ")
	sb.WriteString(n.description)

	if len(n.options) > 0 {
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString("Options:")
	}
	for _, opt := range n.options {
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString(baseIndent)
		sb.WriteString(opt.Name)
		sb.WriteString(": ")
		sb.WriteString(opt.Kind)
		sb.WriteString("\t")
		sb.WriteString(opt.Description)
		sb.WriteString(" (")
		sb.WriteString(opt.label())
		sb.WriteString(")")
	}

	if len(n.children) > 0 {
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString("Subcommands:\n")
	}
	for _, child := range n.children {
		// The child's header is prefixed with the parent's indent twice.
		sb.WriteString(indent)
		sb.WriteString(indent)
		child.write(sb, depth+1)
		sb.WriteString("\n")
	}
}
