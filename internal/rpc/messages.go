// Package rpc is the wire contract between the client and the entry service.
//
// Messages travel as google.protobuf.Struct values. Each call has a typed Go
// request and response; ToStruct and FromStruct convert between them through
// protojson, so both sides stay typed without generated code.
package rpc

import "time"

// Entry kinds accepted by ExtractText.
const (
	KindContainerNumber = "container_number"
	KindLicensePlate    = "license_plate"
)

type Empty struct{}

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	StaffID string `json:"staff_id,omitempty"`
	Role    string `json:"role,omitempty"`
}

type LoginRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type ValidateSessionResponse struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user,omitempty"`
}

// NewEntry is the create-entry payload.
type NewEntry struct {
	ClientEntryID         string    `json:"client_entry_id,omitempty"`
	ContainerNumber       string    `json:"container_number"`
	SecondContainerNumber string    `json:"second_container_number,omitempty"`
	Size                  string    `json:"size"`
	ContainerImage        string    `json:"container_image,omitempty"`
	LicensePlateNumber    string    `json:"license_plate_number"`
	EntryType             string    `json:"entry_type"`
	UserID                string    `json:"user_id"`
	UserName              string    `json:"user_name"`
	CreatedAt             time.Time `json:"created_at"`
}

type CreateEntryRequest struct {
	Entry NewEntry `json:"entry"`
}

type CreateEntryResponse struct {
	ID string `json:"id"`
	// Duplicate is set when ClientEntryID was already stored.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Entry is a stored entry as listed by the server. ContainerImage is either
// a data URL or a storage URL.
type Entry struct {
	ID                    string    `json:"id"`
	ContainerNumber       string    `json:"container_number"`
	SecondContainerNumber string    `json:"second_container_number,omitempty"`
	Size                  string    `json:"size"`
	ContainerImage        string    `json:"container_image,omitempty"`
	LicensePlateNumber    string    `json:"license_plate_number"`
	EntryType             string    `json:"entry_type"`
	UserID                string    `json:"user_id"`
	UserName              string    `json:"user_name"`
	CreatedAt             time.Time `json:"created_at"`
	DeletionRequested     bool      `json:"deletion_requested,omitempty"`
	// DeletionRequestedBy is the name of the staff member who asked.
	DeletionRequestedBy string     `json:"deletion_requested_by,omitempty"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty"`
}

type ListEntriesResponse struct {
	Entries []Entry `json:"entries"`
}

type ExtractTextRequest struct {
	Kind  string `json:"kind"`
	Image string `json:"image"`
}

type ExtractTextResponse struct {
	Text string `json:"text"`
}

// RequestDeletionRequest flags a stored entry for removal by an administrator.
type RequestDeletionRequest struct {
	EntryID string `json:"entry_id"`
}

type RequestDeletionResponse struct {
	// AlreadyRequested is set when the entry was flagged before.
	AlreadyRequested bool `json:"already_requested,omitempty"`
}
