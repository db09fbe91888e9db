// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"

	"dsp/internal/audio"
)

// newLoopbackPair binds an ephemeral loopback listener and a sender
// targeting it, standing in for a visualization consumer.
func newLoopbackPair(t *testing.T) (*net.UDPConn, *UDPSender) {
	t.Helper()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	t.Cleanup(func() { sender.Close() })

	return listener, sender
}

func readPacket(t *testing.T, listener *net.UDPConn) []byte {
	t.Helper()

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	packet := make([]byte, 64*1024)
	n, _, err := listener.ReadFromUDP(packet)
	if err != nil {
		t.Fatalf("reading packet: %v", err)
	}
	return packet[:n]
}

func TestUDPTransportPacketFormat(t *testing.T) {
	listener, sender := newLoopbackPair(t)

	tr, err := NewUDPTransport(sender)
	if err != nil {
		t.Fatalf("NewUDPTransport() error = %v", err)
	}

	snap := &audio.Snapshot{
		SpectrumDB: []float64{-3.5, -40.25, -80},
		SampleRate: 48000,
	}
	before := time.Now().UnixNano()
	if err := tr.Send(snap); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	after := time.Now().UnixNano()

	packet := readPacket(t, listener)
	if want := 4 + 8 + 2 + len(snap.SpectrumDB)*4; len(packet) != want {
		t.Fatalf("packet size = %d, want %d", len(packet), want)
	}

	r := bytes.NewReader(packet)
	var (
		seq       uint32
		timestamp int64
		count     uint16
	)
	if err := binary.Read(r, binary.BigEndian, &seq); err != nil {
		t.Fatalf("reading sequence: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &timestamp); err != nil {
		t.Fatalf("reading timestamp: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		t.Fatalf("reading count: %v", err)
	}

	if seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}
	if timestamp < before || timestamp > after {
		t.Errorf("timestamp %d outside send window [%d, %d]", timestamp, before, after)
	}
	if int(count) != len(snap.SpectrumDB) {
		t.Fatalf("magnitude count = %d, want %d", count, len(snap.SpectrumDB))
	}

	mags := make([]float32, count)
	if err := binary.Read(r, binary.BigEndian, mags); err != nil {
		t.Fatalf("reading magnitudes: %v", err)
	}
	for i, want := range snap.SpectrumDB {
		if mags[i] != float32(want) {
			t.Errorf("magnitude %d = %v, want %v", i, mags[i], float32(want))
		}
	}
}

func TestUDPTransportSequenceNumbers(t *testing.T) {
	listener, sender := newLoopbackPair(t)

	tr, err := NewUDPTransport(sender)
	if err != nil {
		t.Fatalf("NewUDPTransport() error = %v", err)
	}

	snap := &audio.Snapshot{SpectrumDB: []float64{-20}, SampleRate: 48000}
	for i := 0; i < 3; i++ {
		if err := tr.Send(snap); err != nil {
			t.Fatalf("Send() %d error = %v", i, err)
		}
	}

	for want := uint32(1); want <= 3; want++ {
		packet := readPacket(t, listener)
		seq := binary.BigEndian.Uint32(packet[:4])
		if seq != want {
			t.Errorf("sequence = %d, want %d", seq, want)
		}
	}
}

func TestNewUDPTransportNilSender(t *testing.T) {
	if _, err := NewUDPTransport(nil); err == nil {
		t.Error("nil sender accepted")
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not-an-address:-1"); err == nil {
		t.Error("unresolvable address accepted")
	}
}

func TestUDPSenderClosed(t *testing.T) {
	_, sender := newLoopbackPair(t)

	if err := sender.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err := sender.Send([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("Send() on closed sender succeeded")
	}
	if !strings.Contains(err.Error(), "closed") {
		t.Errorf("Send() error = %q, want it to mention the closed sender", err)
	}
}
