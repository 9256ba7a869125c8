package studio

import (
	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	keyAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	revisionLength = 22
	itemKeyLength  = 12
)

func newDocumentID() string {
	return uuid.NewString()
}

func newRevision() (string, error) {
	return nanoid.Generate(keyAlphabet, revisionLength)
}

func newItemKey() (string, error) {
	return nanoid.Generate(keyAlphabet, itemKeyLength)
}
