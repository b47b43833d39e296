package cli

import (
	"fmt"
	"strconv"
)

func parseUID(value string) (uint32, error) {
	uid, err := strconv.ParseUint(value, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid uid: %s", value)
	}
	return uint32(uid), nil
}
