// Platform discovery operations
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dtb

import "github.com/usbarmory/virtcore/kernelerr"

// FindMemory returns the base and size of the first /memory node.
func (b *Blob) FindMemory() (base, size uint64, err error) {
	root, err := b.Tree()
	if err != nil {
		return 0, 0, err
	}

	var found *Node
	Walk(root, func(n *Node) {
		if found == nil && (n.Name == "memory" || hasPrefix(n.Name, "memory@")) {
			found = n
		}
	})

	if found == nil {
		return 0, 0, kernelerr.New(kernelerr.NotFound, "dtb", "FindMemory", "no /memory node")
	}

	tuples, err := found.Reg()
	if err != nil || len(tuples) == 0 {
		return 0, 0, kernelerr.New(kernelerr.NotFound, "dtb", "FindMemory", "memory node has no reg")
	}

	return tuples[0].Address, tuples[0].Size, nil
}

// FindCompatible returns every node whose "compatible" property contains s.
func (b *Blob) FindCompatible(s string) ([]*Node, error) {
	root, err := b.Tree()
	if err != nil {
		return nil, err
	}

	var out []*Node
	Walk(root, func(n *Node) {
		if n.CompatibleContains(s) {
			out = append(out, n)
		}
	})

	return out, nil
}

// CountCPUs counts the children of /cpus whose device_type is "cpu".
func (b *Blob) CountCPUs() (int, error) {
	root, err := b.Tree()
	if err != nil {
		return 0, err
	}

	var cpusNode *Node
	for _, c := range root.Children {
		if c.Name == "cpus" {
			cpusNode = c
			break
		}
	}

	if cpusNode == nil {
		return 0, kernelerr.New(kernelerr.NotFound, "dtb", "CountCPUs", "no /cpus node")
	}

	count := 0
	for _, c := range cpusNode.Children {
		if dt, ok := c.Prop("device_type"); ok && nulString(dt) == "cpu" {
			count++
		}
	}

	return count, nil
}

// GICCompatible and PLICCompatible list the compatible strings accepted
// for the respective architecture's interrupt controller on the QEMU
// virt machine class.
var (
	GICCompatible  = []string{"arm,gic-v3", "arm,cortex-a15-gic"}
	PLICCompatible = []string{"riscv,plic0", "sifive,plic-1.0.0"}
	CLINTCompat    = []string{"riscv,clint0", "sifive,clint0"}
	UARTCompatible = []string{"arm,pl011", "ns16550a", "sifive,uart0"}
)

// FindGIC returns the first node matching a known GIC compatible string.
func (b *Blob) FindGIC() (*Node, error) {
	return firstOfAny(b, GICCompatible, "FindGIC")
}

// FindPLIC returns the first node matching a known PLIC compatible string.
func (b *Blob) FindPLIC() (*Node, error) {
	return firstOfAny(b, PLICCompatible, "FindPLIC")
}

// FindCLINT returns the first node matching a known CLINT compatible
// string, or NotFound (CLINT is optional on ARM64).
func (b *Blob) FindCLINT() (*Node, error) {
	return firstOfAny(b, CLINTCompat, "FindCLINT")
}

// FindUART returns the first node matching a known UART compatible string.
func (b *Blob) FindUART() (*Node, error) {
	return firstOfAny(b, UARTCompatible, "FindUART")
}

func firstOfAny(b *Blob, compats []string, op string) (*Node, error) {
	for _, s := range compats {
		nodes, err := b.FindCompatible(s)
		if err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			return nodes[0], nil
		}
	}

	return nil, kernelerr.New(kernelerr.NotFound, "dtb", op, "no matching compatible node")
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func nulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
