package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Access tokens issued by the X OAuth2 endpoint live two hours.
const defaultTokenLifetime = 7200

func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func newClaim(now time.Time) string {
	return fmt.Sprintf("%s@%d", uuid.NewString(), now.Unix())
}

// claimHeld reports whether claim was taken less than lease ago. Claims have
// the form <token>@<unix seconds>; anything else counts as expired.
func claimHeld(claim string, now time.Time, lease time.Duration) bool {
	i := strings.LastIndex(claim, "@")
	if i < 0 {
		return false
	}
	sec, err := strconv.ParseInt(claim[i+1:], 10, 64)
	if err != nil {
		return false
	}
	return now.Sub(time.Unix(sec, 0)) < lease
}
