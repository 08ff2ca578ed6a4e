package mux

import (
	"github.com/armon/go-metrics"

	"github.com/progrium/bpmux-go/mux/frame"
)

var (
	metricFramesSent     = []string{"bpmux", "frames", "sent"}
	metricFramesReceived = []string{"bpmux", "frames", "received"}
	metricBytesSent      = []string{"bpmux", "bytes", "sent"}
	metricBytesReceived  = []string{"bpmux", "bytes", "received"}
	metricFull           = []string{"bpmux", "full"}
	metricProtocolErrors = []string{"bpmux", "protocol_errors"}
	metricChannelsOpen   = []string{"bpmux", "channels", "open"}
	metricPassChannels   = []string{"bpmux", "sched", "pass_channels"}
)

func typeLabels(t frame.Type) []metrics.Label {
	return []metrics.Label{{Name: "type", Value: t.String()}}
}

func frameSent(t frame.Type, size int) {
	metrics.IncrCounterWithLabels(metricFramesSent, 1, typeLabels(t))
	metrics.IncrCounter(metricBytesSent, float32(size))
}

func frameReceived(t frame.Type) {
	metrics.IncrCounterWithLabels(metricFramesReceived, 1, typeLabels(t))
}
