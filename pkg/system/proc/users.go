package proc

import (
	"os/user"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// userNames resolves uids to login names. Lookups hit the passwd database
// (or NSS), so results, including misses, are kept in a bounded LRU.
type userNames struct {
	cache  *lru.Cache[uint32, string]
	lookup func(uid string) (*user.User, error)
}

func newUserNames(size int) *userNames {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[uint32, string](size) // only fails for size <= 0
	return &userNames{cache: c, lookup: user.LookupId}
}

// name returns the login name for uid, or "" if it has none.
func (u *userNames) name(uid uint32) string {
	if n, ok := u.cache.Get(uid); ok {
		return n
	}
	var n string
	if usr, err := u.lookup(strconv.FormatUint(uint64(uid), 10)); err == nil {
		n = usr.Username
	}
	u.cache.Add(uid, n)
	return n
}
