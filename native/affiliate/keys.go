package affiliate

import (
	"encoding/binary"
	"fmt"
)

const (
	codePrefix        = "affiliate/code/"
	codeOfPrefix      = "affiliate/code-of/"
	sponsorPrefix     = "affiliate/sponsor/"
	memberPrefix      = "affiliate/member/"
	activePrefix      = "affiliate/active-until/"
	directPrefix      = "affiliate/direct-active/"
	cycleMetaPrefix   = "affiliate/cycle/meta/"
	cyclePagePrefix   = "affiliate/cycle/page/"
	entitlementPrefix = "affiliate/entitlement/"
)

var (
	configKey = []byte("affiliate/config")
	cyclesKey = []byte("affiliate/cycles")
)

func codeKey(code string) []byte { return []byte(codePrefix + code) }

func codeOfKey(addr [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", codeOfPrefix, addr[:])) }

func sponsorKey(addr [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", sponsorPrefix, addr[:])) }

func memberKey(addr [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", memberPrefix, addr[:])) }

func activeKey(addr [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", activePrefix, addr[:])) }

func directActiveKey(addr [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", directPrefix, addr[:])) }

func cycleMetaKey(cycle uint32) []byte { return []byte(fmt.Sprintf("%s%d", cycleMetaPrefix, cycle)) }

func cyclePageKey(cycle, page uint32) []byte {
	return []byte(fmt.Sprintf("%s%d/%d", cyclePagePrefix, cycle, page))
}

func entitlementKey(cycle uint32, addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%d/%x", entitlementPrefix, cycle, addr[:]))
}

func encodeCycle(cycle uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], cycle)
	return buf[:]
}

func decodeCycle(raw []byte) (uint32, bool) {
	if len(raw) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(raw), true
}
