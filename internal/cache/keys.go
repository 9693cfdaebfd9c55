package cache

import (
	"fmt"
	"strings"
	"time"
)

const (
	PoemKeyPrefix    = "poem:%d"
	ProfileKeyPrefix = "profile:%s"
)

const (
	PoemTTL    = 5 * time.Minute
	ProfileTTL = time.Minute
)

// PoemKey caches the anonymous view of a poem.
func PoemKey(poemID uint) string {
	return fmt.Sprintf(PoemKeyPrefix, poemID)
}

// ProfileKey caches the anonymous view of a user profile.
func ProfileKey(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
