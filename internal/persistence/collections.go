// Package persistence stores CRM collections as whole JSON documents in a
// primary document store, falls back to local files when the primary is
// unavailable, and broadcasts successful writes to other instances.
package persistence

import (
	stderrors "errors"
)

// Collection names a persisted record collection.
type Collection string

const (
	Leads          Collection = "Leads"
	Properties     Collection = "Properties"
	Contracts      Collection = "Contracts"
	Buyers         Collection = "Buyers"
	WholesaleDeals Collection = "WholesaleDeals"
)

// Collections lists every collection in flush order.
var Collections = []Collection{Leads, Properties, Contracts, Buyers, WholesaleDeals}

func (c Collection) String() string { return string(c) }

// ErrNoDocument is returned by a DocumentStore when the collection has
// never been written.
var ErrNoDocument = stderrors.New("persistence: no document")
