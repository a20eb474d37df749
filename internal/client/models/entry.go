// Package models defines the client-side data models of the container tracker:
// outbox records, cached server entries, sync metadata and sessions.
package models

import "time"

// MaxRetries is the number of failed sync attempts after which an outbox
// record is excluded from automatic sync.
const MaxRetries = 3

// SyncStatus is the lifecycle state of an outbox record.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusFailed  SyncStatus = "failed"
)

// EntryType classifies a container movement.
type EntryType string

const (
	EntryTypeReceiving EntryType = "receiving"
	EntryTypeClearing  EntryType = "clearing"
)

// ContainerSize is the nominal container length.
type ContainerSize string

const (
	Size20ft   ContainerSize = "20ft"
	Size40ft   ContainerSize = "40ft"
	Size40ftHC ContainerSize = "40ft HC"
	Size45ft   ContainerSize = "45ft"
)

// ContainerSizes lists the accepted sizes in display order.
var ContainerSizes = []ContainerSize{Size20ft, Size40ft, Size40ftHC, Size45ft}

// PendingEntry is an unsynced submission held in the local outbox.
type PendingEntry struct {
	// ID is generated on the client and stays stable across retries.
	ID string

	ContainerNumber       string
	SecondContainerNumber string
	Size                  ContainerSize

	// ContainerImage is an image data URL (may be empty).
	ContainerImage string

	LicensePlateNumber string
	EntryType          EntryType
	UserID             string
	UserName           string

	// CreatedAt is the client timestamp used for display ordering.
	CreatedAt time.Time

	SyncStatus SyncStatus
	RetryCount int
}

// Exhausted reports whether the record reached the retry ceiling.
func (e *PendingEntry) Exhausted() bool {
	return e.RetryCount >= MaxRetries
}

// Fields returns the payload sent to the remote create-entry operation.
func (e *PendingEntry) Fields() EntryFields {
	return EntryFields{
		ClientEntryID:         e.ID,
		ContainerNumber:       e.ContainerNumber,
		SecondContainerNumber: e.SecondContainerNumber,
		Size:                  e.Size,
		ContainerImage:        e.ContainerImage,
		LicensePlateNumber:    e.LicensePlateNumber,
		EntryType:             e.EntryType,
		UserID:                e.UserID,
		UserName:              e.UserName,
		CreatedAt:             e.CreatedAt,
	}
}

// EntryFields is the create-entry payload. ClientEntryID carries the outbox
// id so the remote side can de-duplicate repeated deliveries.
type EntryFields struct {
	ClientEntryID         string        `json:"client_entry_id,omitempty"`
	ContainerNumber       string        `json:"container_number"`
	SecondContainerNumber string        `json:"second_container_number,omitempty"`
	Size                  ContainerSize `json:"size"`
	ContainerImage        string        `json:"container_image,omitempty"`
	LicensePlateNumber    string        `json:"license_plate_number"`
	EntryType             EntryType     `json:"entry_type"`
	UserID                string        `json:"user_id"`
	UserName              string        `json:"user_name"`
	CreatedAt             time.Time     `json:"created_at"`
}

// CachedEntry is a snapshot of a server-confirmed entry.
type CachedEntry struct {
	ID                    string        `json:"id"`
	ContainerNumber       string        `json:"container_number"`
	SecondContainerNumber string        `json:"second_container_number,omitempty"`
	Size                  ContainerSize `json:"size"`
	UserName              string        `json:"user_name"`
	UserID                string        `json:"user_id"`
	CreatedAt             time.Time     `json:"created_at"`
	ContainerImage        string        `json:"container_image,omitempty"`
	LicensePlateNumber    string        `json:"license_plate_number"`
	EntryType             EntryType     `json:"entry_type"`
	DeletionRequested     bool          `json:"deletion_requested"`
}

// SyncResult is the tally of one drain pass.
type SyncResult struct {
	Synced int
	Failed int

	// NoSession is set when the drain was blocked by a missing credential.
	NoSession bool
	// Skipped is set when another drain was already in flight.
	Skipped bool
	// Interrupted is set when connectivity was lost between items.
	Interrupted bool
}
