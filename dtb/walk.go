// Structure-block tree walk
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dtb

import (
	"encoding/binary"
	"strings"

	"github.com/usbarmory/virtcore/kernelerr"
)

// defaultAddressCells/defaultSizeCells are the values a node inherits
// from the root when no ancestor specifies #address-cells/#size-cells.
const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
)

// Node is one device-tree node, decoded into a tree so ancestor
// #address-cells/#size-cells can be resolved by walking up Parent.
type Node struct {
	Name     string
	Parent   *Node
	Children []*Node
	Props    map[string][]byte

	AddressCells uint32
	SizeCells    uint32
}

// Prop returns the raw value of a property, and whether it is present.
func (n *Node) Prop(name string) ([]byte, bool) {
	v, ok := n.Props[name]
	return v, ok
}

// CompatibleContains reports whether the node's "compatible" property
// (a sequence of NUL-terminated strings) contains s.
func (n *Node) CompatibleContains(s string) bool {
	v, ok := n.Prop("compatible")
	if !ok {
		return false
	}

	for _, entry := range splitNulTerminated(v) {
		if entry == s {
			return true
		}
	}

	return false
}

func splitNulTerminated(b []byte) []string {
	parts := strings.Split(string(b), "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RegTuple is one decoded (address, size) pair from a "reg" property.
type RegTuple struct {
	Address uint64
	Size    uint64
}

// Reg decodes the node's "reg" property using this node's inherited
// #address-cells/#size-cells (governed by the nearest ancestor that
// specifies them).
func (n *Node) Reg() ([]RegTuple, error) {
	v, ok := n.Prop("reg")
	if !ok {
		return nil, kernelerr.New(kernelerr.NotFound, "dtb", "Reg", "no reg property")
	}

	ac, sc := n.AddressCells, n.SizeCells
	if n.Parent != nil {
		ac, sc = n.Parent.AddressCells, n.Parent.SizeCells
	}
	entrySize := int(ac+sc) * 4
	if entrySize == 0 || len(v)%entrySize != 0 {
		return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Reg", "malformed reg property")
	}

	var out []RegTuple
	for off := 0; off < len(v); off += entrySize {
		addr := readCells(v[off:off+int(ac)*4], ac)
		size := readCells(v[off+int(ac)*4:off+entrySize], sc)
		out = append(out, RegTuple{Address: addr, Size: size})
	}

	return out, nil
}

func readCells(b []byte, cells uint32) uint64 {
	var v uint64
	for i := uint32(0); i < cells; i++ {
		v = v<<32 | uint64(binary.BigEndian.Uint32(b[i*4:i*4+4]))
	}
	return v
}

// Tree parses the full structure block into a Node tree rooted at "/".
func (b *Blob) Tree() (*Node, error) {
	p := b.hdr.OffDTStruct
	stringsOff := b.hdr.OffDTStrings

	root := &Node{Name: "/", Props: map[string][]byte{}, AddressCells: defaultAddressCells, SizeCells: defaultSizeCells}
	stack := []*Node{root}
	cur := root
	sawRoot := false

	for {
		if int(p)+4 > len(b.data) {
			return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Tree", "structure block overrun")
		}

		tok := binary.BigEndian.Uint32(b.data[p : p+4])
		p += 4

		switch tok {
		case tokenNop:
			continue

		case tokenEnd:
			if len(stack) != 1 {
				return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Tree", "unbalanced node nesting")
			}
			return root, nil

		case tokenBeginNode:
			name, np := readCString(b.data, p)
			p = align4(np)

			if !sawRoot {
				// The first FDT_BEGIN_NODE is the root node itself; reuse it.
				root.Name = name
				sawRoot = true
				cur = root
				continue
			}

			n := &Node{
				Name:         name,
				Parent:       cur,
				Props:        map[string][]byte{},
				AddressCells: cur.AddressCells,
				SizeCells:    cur.SizeCells,
			}
			cur.Children = append(cur.Children, n)
			stack = append(stack, n)
			cur = n

		case tokenEndNode:
			if len(stack) <= 1 {
				return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Tree", "extra end-node token")
			}
			stack = stack[:len(stack)-1]
			cur = stack[len(stack)-1]

		case tokenProp:
			if int(p)+8 > len(b.data) {
				return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Tree", "property header overrun")
			}

			length := binary.BigEndian.Uint32(b.data[p : p+4])
			nameOff := binary.BigEndian.Uint32(b.data[p+4 : p+8])
			p += 8

			name, _ := readCString(b.data, stringsOff+nameOff)
			value := b.data[p : p+length]
			p = align4(p + length)

			cur.Props[name] = value

			switch name {
			case "#address-cells":
				cur.AddressCells = uint32(readCells(value, 1))
			case "#size-cells":
				cur.SizeCells = uint32(readCells(value, 1))
			}

		default:
			return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Tree", "unrecognized structure token")
		}
	}
}

func readCString(data []byte, off uint32) (string, uint32) {
	start := off
	for data[off] != 0 {
		off++
	}
	return string(data[start:off]), off + 1
}

func align4(off uint32) uint32 {
	return (off + 3) &^ 3
}

// Walk calls fn for every node in the tree, pre-order.
func Walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
