package escrow

import "fmt"

var jobPrefix = "escrow/job/"

func jobKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", jobPrefix, id))
}
