package store

import (
	"fmt"
	"strings"
)

// Entity kinds used in composite keys.
const (
	KindUser = "USER"
	KindPost = "POST"
)

// EntityKey formats a composite KIND#id key.
func EntityKey(kind, id string) string {
	return kind + "#" + id
}

// ParseEntityKey splits a KIND#id key. Keys without exactly one separator or
// with an empty half are malformed.
func ParseEntityKey(key string) (kind, id string, err error) {
	i := strings.IndexByte(key, '#')
	if i <= 0 || i == len(key)-1 {
		return "", "", fmt.Errorf("malformed entity key %q", key)
	}
	kind, id = key[:i], key[i+1:]
	if strings.IndexByte(id, '#') >= 0 {
		return "", "", fmt.Errorf("malformed entity key %q", key)
	}
	return kind, id, nil
}

func keyEntity(ns, entity string) []byte {
	return []byte("sg/" + ns + "/ent/" + entity)
}

func keyRelation(ns, pk, sk string) []byte {
	return []byte("sg/" + ns + "/rel/" + pk + "/" + sk)
}

func keyRelationPrefix(ns, pk, skPrefix string) []byte {
	return []byte("sg/" + ns + "/rel/" + pk + "/" + skPrefix)
}

func keyCounter(ns, entity, name string) []byte {
	return []byte("sg/" + ns + "/cnt/" + entity + "/" + name)
}

func keyAuthorIndex(ns, authorID, sortKey string) []byte {
	return []byte("sg/" + ns + "/idx/author/" + authorID + "/" + sortKey)
}

func keyAuthorIndexPrefix(ns, authorID string) []byte {
	return []byte("sg/" + ns + "/idx/author/" + authorID + "/")
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix.
func prefixUpperBound(prefix []byte) []byte {
	ub := append([]byte(nil), prefix...)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] < 0xff {
			ub[i]++
			return ub[:i+1]
		}
	}
	return nil
}
