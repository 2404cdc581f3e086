// VirtIO transport collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package virtio defines a transport interface contract for a VirtIO
// device: the legacy MMIO register window of a VirtIO device driver,
// reduced to an interface. No package in this module implements or
// calls it. Negotiating features and driving a real virtqueue end to
// end is out of core scope.
package virtio

// Transport is the MMIO register surface a VirtIO device driver
// exposes.
type Transport interface {
	DeviceID() uint32
	DeviceFeatures() uint32
	SelectQueue(index uint32)
	MaxQueueSize() uint32
	SetQueueSize(n uint32)
}

// Device type ids, as numbered by the VirtIO specification.
const (
	DeviceNetworkCard   = 0x01
	DeviceBlock         = 0x02
	DeviceConsole       = 0x03
	DeviceEntropySource = 0x04
)
