package p2p

// Metric family names reported by the accelerator transport.
const (
	MetricP2PMessagesTotal = "p2p_msgs_total"         // {protocol,direction,result}
	MetricP2PBytesTotal    = "p2p_bytes_total"        // {protocol,direction}
	MetricRateLimitedTotal = "p2p_rate_limited_total" // {kind}
	MetricStreamsOpen      = "p2p_streams_open"
)
