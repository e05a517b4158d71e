package client

import (
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// defaultHTTPClient builds the outbound client. When an IPv6 block is given,
// one random address inside it is bound as the local endpoint, so distinct
// client instances present distinct source addresses.
func defaultHTTPClient(ipv6Block string, logger zerolog.Logger) *http.Client {
	if ipv6Block == "" {
		return &http.Client{}
	}
	_, block, err := net.ParseCIDR(ipv6Block)
	if err != nil || block.IP.To4() != nil {
		logger.Warn().Str("block", ipv6Block).Msg("invalid ipv6 block ignored")
		return &http.Client{}
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		LocalAddr: &net.TCPAddr{IP: randomIPv6(block)},
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// randomIPv6 fills the host bits of block with random values.
func randomIPv6(block *net.IPNet) net.IP {
	ip := make(net.IP, net.IPv6len)
	copy(ip, block.IP.To16())
	ones, bits := block.Mask.Size()
	for bit := ones; bit < bits; bit++ {
		if rand.Intn(2) == 1 {
			ip[bit/8] |= 1 << (7 - bit%8)
		}
	}
	return ip
}
