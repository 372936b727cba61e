package bank

import "fmt"

var (
	accountPrefix  = "bank/account/"
	holdPrefix     = "bank/hold/"
	issuanceKey    = []byte("bank/issuance")
	holdTotalsPref = "bank/hold-total/"
)

func accountKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", accountPrefix, addr[:]))
}

func holdKey(reason HoldReason, addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%s/%x", holdPrefix, reason, addr[:]))
}

func holdTotalKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", holdTotalsPref, addr[:]))
}
