package p2p

// NetConfig carries runtime options for the accelerator transport.
type NetConfig struct {
	Enable     bool
	Listen     []string // multiaddrs to listen on (server side); empty => libp2p default
	Peer       string   // full /p2p/ multiaddr of the remote accelerator (client side)
	NAT        bool     // enable NAT port mapping if available
	MaxStreams int64    // concurrent inbound streams; <= 0 means unlimited
}
