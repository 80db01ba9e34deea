// Package cache holds the portal's query cache and the bus that tells every
// replica and every open browser which entries went stale.
package cache

import (
	"fmt"
	"strings"
)

type KeyKind string

const (
	KindDocument     KeyKind = "document"
	KindDownloadURL  KeyKind = "document-download-url"
	KindApplication  KeyKind = "application"
	KindDocumentList KeyKind = "document-list"
)

// Key names one cached query: a kind of read plus the id it was made for.
type Key struct {
	Kind KeyKind `json:"kind"`
	ID   string  `json:"id"`
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

func DocumentKey(id string) Key     { return Key{Kind: KindDocument, ID: id} }
func DownloadURLKey(id string) Key  { return Key{Kind: KindDownloadURL, ID: id} }
func ApplicationKey(id string) Key  { return Key{Kind: KindApplication, ID: id} }
func DocumentListKey(id string) Key { return Key{Kind: KindDocumentList, ID: id} }

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Key{}, fmt.Errorf("cache: malformed key %q", s)
	}
	switch k := KeyKind(kind); k {
	case KindDocument, KindDownloadURL, KindApplication, KindDocumentList:
		return Key{Kind: k, ID: id}, nil
	}
	return Key{}, fmt.Errorf("cache: unknown key kind %q", kind)
}
