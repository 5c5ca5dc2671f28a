package chaincfg

import (
	"math/rand/v2"
	"net/netip"
	"time"
)

const oneWeek = 7 * 24 * time.Hour

// mainNetFixedSeeds are IPv4-mapped IPv6 encodings of the bootstrap peers.
func mainNetFixedSeeds() [][16]byte {
	return [][16]byte{
		ipv4Mapped(159, 65, 245, 18),
		ipv4Mapped(159, 203, 43, 8),
		ipv4Mapped(138, 68, 180, 33),
		ipv4Mapped(188, 166, 226, 48),
		ipv4Mapped(174, 138, 6, 72),
		ipv4Mapped(138, 68, 49, 146),
	}
}

func ipv4Mapped(a, b, c, d byte) [16]byte {
	return [16]byte{10: 0xff, 11: 0xff, 12: a, 13: b, 14: c, 15: d}
}

// materializeSeeds turns raw seed encodings into addresses on port. Each
// address gets a last-seen time between one and two weeks before now, so a
// fresh node neither stampedes the seeds nor reveals its start time.
func materializeSeeds(raw [][16]byte, port uint16, now time.Time) []NetAddress {
	if len(raw) == 0 {
		return nil
	}
	out := make([]NetAddress, 0, len(raw))
	for _, r := range raw {
		addr := netip.AddrFrom16(r).Unmap()
		offset := oneWeek + time.Duration(rand.Int64N(int64(oneWeek)))
		out = append(out, NetAddress{
			Addr:     netip.AddrPortFrom(addr, port),
			LastSeen: now.Add(-offset),
		})
	}
	return out
}
