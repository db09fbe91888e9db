package transport

import (
	"dsp/internal/audio"
	applog "dsp/internal/log"
	"dsp/pkg/utils"
)

// LoggingTransport summarizes each snapshot to the debug log. Useful
// for verifying the pipeline without a UDP or WebSocket consumer
// attached.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Infof("transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs the snapshot's peak bin. Never fails.
func (lt *LoggingTransport) Send(snap *audio.Snapshot) error {
	if len(snap.SpectrumDB) == 0 {
		return nil
	}
	peak := utils.FindPeakBin(snap.SpectrumDB, 1, len(snap.SpectrumDB)-1)
	applog.Debugf("transport: %d bins, peak %.1f dB at %.0f Hz",
		len(snap.SpectrumDB), snap.SpectrumDB[peak], snap.FrequencyHz[peak])
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
