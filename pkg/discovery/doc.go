// ABOUTME: mDNS discovery for MBE transcoding services
// ABOUTME: Advertises a transcoder and browses for others on the local network
// Package discovery advertises and finds MBE transcoders with mDNS.
//
// A transcoder advertises _mbe-transcode._tcp with TXT records naming its
// websocket path, the modes it encodes and the library version. Browsing
// delivers every transcoder seen on the Services channel.
//
// Example:
//
//	m := discovery.NewManager(discovery.Config{ServiceName: "site-a", Port: 8940})
//	err := m.Advertise()
//	defer m.Stop()
package discovery
