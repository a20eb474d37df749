// Package models defines the records held by the development server.
package models

import "time"

type User struct {
	ID       string
	Name     string
	StaffID  string
	Role     string
	CodeHash []byte
}

type Entry struct {
	ID                    string
	ClientEntryID         string
	ContainerNumber       string
	SecondContainerNumber string
	Size                  string
	// ContainerImage holds the data URL until the image is moved to object
	// storage, after which ImageKey is set instead.
	ContainerImage     string
	ImageKey           string
	LicensePlateNumber string
	EntryType          string
	UserID             string
	UserName           string
	CreatedAt          time.Time
	ReceivedAt         time.Time

	DeletionRequested   bool
	DeletionRequestedAt time.Time
	DeletionRequestedBy string
}
