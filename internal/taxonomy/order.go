package taxonomy

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Less orders mapping keys
type Less func(a, b string) bool

// ByteOrder compares keys by their UTF-8 bytes, which is code point order
func ByteOrder(a, b string) bool {
	return a < b
}

// CollatorLess orders keys by the collation rules of a language. The returned
// function is not safe for concurrent use.
func CollatorLess(tag language.Tag) Less {
	c := collate.New(tag)
	return func(a, b string) bool {
		return c.CompareString(a, b) < 0
	}
}

// LessFor returns CollatorLess for a BCP 47 tag, or ByteOrder when lang is empty
func LessFor(lang string) (Less, error) {
	if lang == "" {
		return ByteOrder, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, err
	}
	return CollatorLess(tag), nil
}
