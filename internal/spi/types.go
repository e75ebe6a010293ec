// Package spi defines the Service Provider Interface boundary: the adapter
// contracts a bank implements against its core systems, the tagged
// success/failure result they return, and the mapper that translates adapter
// failures into the protocol error vocabulary.
package spi

import (
	id "xs2a/pkg/domain"
)

// PsuIdData carries the PSU identity as submitted through the XS2A headers.
type PsuIdData struct {
	PsuID          id.PsuID
	PsuIDType      string
	PsuCorporateID string
}

// IsEmpty reports whether no PSU identity was provided.
func (p PsuIdData) IsEmpty() bool {
	return p.PsuID.IsEmpty()
}

// Matches reports whether two PSU identities refer to the same PSU. The id
// type qualifies the id, so both must agree when set.
func (p PsuIdData) Matches(other PsuIdData) bool {
	if p.PsuID != other.PsuID {
		return false
	}
	if p.PsuIDType != "" && other.PsuIDType != "" && p.PsuIDType != other.PsuIDType {
		return false
	}
	return true
}

// TppInfo identifies the calling TPP towards the adapter.
type TppInfo struct {
	AuthorisationNumber id.TppID
	Name                string
}

// ContextData is the call context every adapter operation receives. Built
// once per request from the request context; adapters must not cache it.
type ContextData struct {
	Psu       PsuIdData
	Tpp       TppInfo
	RequestID string
}

// AuthenticationObject describes one SCA method offered to the PSU.
type AuthenticationObject struct {
	ID          string `json:"authenticationMethodId"`
	Type        string `json:"authenticationType,omitempty"`
	Version     string `json:"authenticationVersion,omitempty"`
	Name        string `json:"name,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// ChallengeData carries the ASPSP challenge for the chosen SCA method.
type ChallengeData struct {
	Image                 []byte   `json:"image,omitempty"`
	Data                  []string `json:"data,omitempty"`
	ImageLink             string   `json:"imageLink,omitempty"`
	OtpMaxLength          int      `json:"otpMaxLength,omitempty"`
	OtpFormat             string   `json:"otpFormat,omitempty"`
	AdditionalInformation string   `json:"additionalInformation,omitempty"`
}

// ScaConfirmation is the protocol-specific confirmation object handed to the
// adapter when verifying an authentication code.
type ScaConfirmation struct {
	AuthorisationID id.AuthorisationID
	OwnerID         string
	MethodID        string
	TanNumber       string
}
