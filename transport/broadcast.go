package transport

import "net"

// DiscoverBroadcastIP scans the host's non-loopback IPv4 interfaces and
// returns the first subnet broadcast address found. ok is false when no
// candidate interface exists; callers then fall back to the universal
// broadcast address.
func DiscoverBroadcastIP() (ip string, ok bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagBroadcast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, isNet := addr.(*net.IPNet)
			if !isNet {
				continue
			}
			v4 := ipnet.IP.To4()
			if v4 == nil {
				continue
			}

			bcast := BroadcastAddr(ipnet)
			if bcast != nil {
				return bcast.String(), true
			}
		}
	}
	return "", false
}

// BroadcastAddr computes the directed broadcast address of an IPv4
// network (host bits all ones). Returns nil for non-IPv4 networks.
func BroadcastAddr(ipnet *net.IPNet) net.IP {
	v4 := ipnet.IP.To4()
	if v4 == nil {
		return nil
	}
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}

	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = v4[i] | ^mask[i]
	}
	return bcast
}
