// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"dsp/internal/audio"
	applog "dsp/internal/log"
	"dsp/internal/transport"
)

/*
UDP packet layout (BigEndian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Magnitude   |       Magnitudes        |
|      (uint32)     |      (int64, ns)      |     Count     |      (N * float32)      |
|                   |                       |    (uint16)   |                         |
+-------------------+-----------------------+---------------+-------------------------+
*/

// UDPTransport packs spectrum snapshots into binary packets and sends
// them through a UDPSender. Packets carry a sequence number so the
// receiver can detect loss and reordering; magnitudes are narrowed to
// float32 to halve the wire size.
type UDPTransport struct {
	sender *UDPSender

	mu          sync.Mutex // serializes packet building
	sequenceNum uint32

	// Reused across packets so steady-state sends do not allocate.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPTransport wraps sender in the snapshot packet format.
func NewUDPTransport(sender *UDPSender) (*UDPTransport, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp transport: sender cannot be nil")
	}
	return &UDPTransport{
		sender:       sender,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send packs snap's spectrum and transmits it as one packet.
func (t *UDPTransport) Send(snap *audio.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	packet, err := t.buildPacket(snap)
	if err != nil {
		return err
	}
	if err := t.sender.Send(packet); err != nil {
		return err
	}
	applog.Debugf("udp: sent packet %d (%d bytes)", t.sequenceNum, len(packet))
	return nil
}

// buildPacket assembles the wire format above into the reusable packet
// buffer; the returned slice is valid until the next call.
func (t *UDPTransport) buildPacket(snap *audio.Snapshot) ([]byte, error) {
	if cap(t.f32Buffer) < len(snap.SpectrumDB) {
		t.f32Buffer = make([]float32, len(snap.SpectrumDB))
	}
	t.f32Buffer = t.f32Buffer[:len(snap.SpectrumDB)]
	for i, v := range snap.SpectrumDB {
		t.f32Buffer[i] = float32(v)
	}

	t.sequenceNum++
	timestamp := time.Now().UnixNano()
	count := uint16(len(t.f32Buffer))

	t.packetBuffer.Reset()
	err := binary.Write(t.packetBuffer, binary.BigEndian, t.sequenceNum)
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, count)
	}
	if err == nil {
		err = binary.Write(t.packetBuffer, binary.BigEndian, t.f32Buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("udp transport: packing packet: %w", err)
	}
	return t.packetBuffer.Bytes(), nil
}

// Close releases the underlying sender.
func (t *UDPTransport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*UDPTransport)(nil)
