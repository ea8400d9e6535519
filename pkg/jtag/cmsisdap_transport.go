package jtag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	// DefaultPacketSize applies until the bulk IN endpoint reports its own.
	DefaultPacketSize = 64
	DefaultTimeout    = 5 * time.Second
)

// USBLink is a bulk-endpoint command channel to a CMSIS-DAP v2 probe.
type USBLink struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

// NewUSBLink opens the first device matching vid:pid and claims its vendor
// interface.
func NewUSBLink(vid, pid uint16) (*USBLink, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: device %04X:%04X not found", vid, pid)
	}
	// Not supported on every platform.
	_ = dev.SetAutoDetach(true)

	l := &USBLink{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
		timeout:    DefaultTimeout,
	}
	if err := l.claim(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func (l *USBLink) claim() error {
	cfg, err := l.dev.Config(1)
	if err != nil {
		return fmt.Errorf("usb: config: %w", err)
	}
	l.cfg = cfg

	num := 0
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			num = intf.Number
			break
		}
	}
	intf, err := cfg.Interface(num, 0)
	if err != nil {
		return fmt.Errorf("usb: claim interface %d: %w", num, err)
	}
	l.intf = intf

	var outNum, inNum int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && outNum == 0:
			outNum = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && inNum == 0:
			inNum = ep.Number
			l.packetSize = ep.MaxPacketSize
		}
	}
	if outNum == 0 || inNum == 0 {
		return errors.New("usb: bulk endpoints not found")
	}
	if l.epOut, err = intf.OutEndpoint(outNum); err != nil {
		return fmt.Errorf("usb: OUT endpoint: %w", err)
	}
	if l.epIn, err = intf.InEndpoint(inNum); err != nil {
		return fmt.Errorf("usb: IN endpoint: %w", err)
	}
	return nil
}

// WriteRead sends one command packet and returns the probe's response.
func (l *USBLink) WriteRead(cmd []byte) ([]byte, error) {
	if len(cmd) > l.packetSize {
		return nil, fmt.Errorf("usb: command of %d bytes exceeds packet size %d", len(cmd), l.packetSize)
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	packet := make([]byte, l.packetSize)
	copy(packet, cmd)
	if _, err := l.epOut.WriteContext(ctx, packet); err != nil {
		return nil, fmt.Errorf("usb: write: %w", err)
	}
	resp := make([]byte, l.packetSize)
	n, err := l.epIn.ReadContext(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("usb: read: %w", err)
	}
	return resp[:n], nil
}

// PacketSize is the bulk IN endpoint's maximum packet size.
func (l *USBLink) PacketSize() int {
	return l.packetSize
}

// SetTimeout bounds each WriteRead.
func (l *USBLink) SetTimeout(timeout time.Duration) {
	l.timeout = timeout
}

func (l *USBLink) Close() error {
	if l.intf != nil {
		l.intf.Close()
		l.intf = nil
	}
	if l.cfg != nil {
		l.cfg.Close()
		l.cfg = nil
	}
	if l.dev != nil {
		l.dev.Close()
		l.dev = nil
	}
	if l.ctx != nil {
		l.ctx.Close()
		l.ctx = nil
	}
	return nil
}
