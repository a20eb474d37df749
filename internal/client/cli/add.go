package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/containertracker/internal/client/capture"
	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/syncer"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
)

var loadImageFile = capture.LoadImageFile

// readPhoto asks for an optional photo and tries OCR on it. Any failure
// leaves the operator to type the value.
func (a *App) readPhoto(ctx context.Context, what, kind string) (image, suggestion string, err error) {
	path, err := getSimpleText(a.reader, "Photo of the "+what+" (file path, empty to skip)", a.out)
	if err != nil || path == "" {
		return "", "", err
	}
	image, err = loadImageFile(path)
	if err != nil {
		a.println("Cannot use photo:", err)
		return "", "", nil
	}
	if text, ok := a.capture.Extract(ctx, kind, image); ok {
		a.printf("Read %q from the photo\n", text)
		return image, text, nil
	}
	a.println("Could not read the photo, please type the value")
	return image, "", nil
}

func sizeOptions() []string {
	out := make([]string, len(models.ContainerSizes))
	for i, s := range models.ContainerSizes {
		out[i] = string(s)
	}
	return out
}

// Add captures one container movement and queues it.
func (a *App) Add(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Please login first")
		return nil
	}

	var d capture.Draft
	image, suggestion, err := a.readPhoto(ctx, "container", rpc.KindContainerNumber)
	if err != nil {
		return err
	}
	d.ContainerImage = image

	if d.ContainerNumber, err = GetTextWithDefault(a.reader, "Container number", suggestion, a.out); err != nil {
		return err
	}
	if d.SecondContainerNumber, err = getSimpleText(a.reader, "Second container number (empty if none)", a.out); err != nil {
		return err
	}
	if d.Size, err = GetChoice(a.reader, "Container size", sizeOptions(), a.out); err != nil {
		return err
	}
	if d.EntryType, err = GetChoice(a.reader, "Entry type",
		[]string{string(models.EntryTypeReceiving), string(models.EntryTypeClearing)}, a.out); err != nil {
		return err
	}

	_, plate, err := a.readPhoto(ctx, "license plate", rpc.KindLicensePlate)
	if err != nil {
		return err
	}
	if d.LicensePlateNumber, err = GetTextWithDefault(a.reader, "License plate number", plate, a.out); err != nil {
		return err
	}

	e, err := a.capture.Submit(ctx, d)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			a.println(err.Error())
			return err
		}
		a.log.Error(ctx, "saving entry failed", "error", err)
		a.println("Could not save entry:", err)
		return err
	}
	a.printf("Saved %s locally (id %s)\n", e.ContainerNumber, e.ID)
	_ = a.status.Refresh(ctx)

	if a.online() {
		res, err := a.status.SyncNow(ctx)
		if err != nil {
			a.println("Sync failed:", err)
			return nil
		}
		a.println(syncer.Summary(res))
	} else {
		a.println("Offline: the entry will be sent when the connection is back")
	}
	return nil
}
