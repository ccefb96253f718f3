package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Symbols are the decorative marks handed out at random on registration.
var Symbols = []string{
	"🗡️", "🛡️", "🕯️", "🦉", "🐍", "🌙", "⚔️", "🔮", "🗝️", "🥀", "🃏", "🎭",
	"🦇", "🐺", "🏰", "📜",
}

// AvatarCount is the size of the avatar catalog served by the client.
const AvatarCount = 12

// AvatarFor returns the avatar assigned to username. The choice depends only
// on the lower-cased username, so it is stable across restarts and backends.
func AvatarFor(username string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(username)))
	return fmt.Sprintf("avatar-%02d", int(h.Sum32()%AvatarCount)+1)
}
