package models

import (
	"time"

	id "dealflow/pkg/domain"
)

type PropertyType string

const (
	PropertyTypeUnset PropertyType = ""
	PropertyTypeHouse PropertyType = "house"
	PropertyTypeCondo PropertyType = "condo"
	PropertyTypeLand  PropertyType = "land"
)

func (p PropertyType) IsValid() bool {
	switch p {
	case PropertyTypeUnset, PropertyTypeHouse, PropertyTypeCondo, PropertyTypeLand:
		return true
	}
	return false
}

type PropertyContext string

const (
	PropertyContextUnset    PropertyContext = ""
	PropertyContextUrban    PropertyContext = "urban"
	PropertyContextSuburban PropertyContext = "suburban"
	PropertyContextRural    PropertyContext = "rural"
)

func (c PropertyContext) IsValid() bool {
	switch c {
	case PropertyContextUnset, PropertyContextUrban, PropertyContextSuburban, PropertyContextRural:
		return true
	}
	return false
}

// PropertyProfile classifies the property and seeds which conditions apply.
//
// Invariants:
//   - Immutable once the transaction's current step order exceeds 1
//   - CondoDocsRequired always equals PropertyType == condo
type PropertyProfile struct {
	TransactionID     id.TransactionID `json:"transactionId"`
	PropertyType      PropertyType     `json:"propertyType"`
	PropertyContext   PropertyContext  `json:"propertyContext"`
	IsFinanced        bool             `json:"isFinanced"`
	HasWell           bool             `json:"hasWell"`
	HasSeptic         bool             `json:"hasSeptic"`
	CondoDocsRequired bool             `json:"condoDocsRequired"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// ProfileInput is the caller-supplied part of a profile. Nil well/septic flags
// are derived from the property context.
type ProfileInput struct {
	PropertyType    PropertyType
	PropertyContext PropertyContext
	IsFinanced      bool
	HasWell         *bool
	HasSeptic       *bool
}

// NewDefaultProfile is the empty classification stored at transaction creation.
func NewDefaultProfile(txID id.TransactionID, now time.Time) *PropertyProfile {
	return &PropertyProfile{TransactionID: txID, CreatedAt: now, UpdatedAt: now}
}

// ApplyInput overwrites the classification and recomputes derived flags.
func (p *PropertyProfile) ApplyInput(in ProfileInput, now time.Time) {
	p.PropertyType = in.PropertyType
	p.PropertyContext = in.PropertyContext
	p.IsFinanced = in.IsFinanced

	offGrid := in.PropertyContext == PropertyContextRural && in.PropertyType != PropertyTypeCondo
	p.HasWell = offGrid
	if in.HasWell != nil {
		p.HasWell = *in.HasWell
	}
	p.HasSeptic = offGrid
	if in.HasSeptic != nil {
		p.HasSeptic = *in.HasSeptic
	}
	p.CondoDocsRequired = in.PropertyType == PropertyTypeCondo
	p.UpdatedAt = now
}

// ProfileLocked reports whether a transaction positioned at currentOrder may no
// longer change its profile. A completed workflow sits past its last step
// (order len(steps)+1) and reports complete, so it is locked either way.
func ProfileLocked(currentOrder int, complete bool) bool {
	return complete || currentOrder > 1
}
