// Package capture turns what the operator typed and photographed into
// outbox records. It works offline: OCR is a convenience that may fail, the
// local write is the only step that must succeed.
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/session"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/filex"
	"github.com/dmitrijs2005/containertracker/internal/imagex"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/ocr"
)

const defaultOCRTimeout = 30 * time.Second

type TextExtractor interface {
	ExtractText(ctx context.Context, kind, image string) (string, error)
}

type Outbox interface {
	AddPending(ctx context.Context, e *models.PendingEntry) error
}

type SessionSource interface {
	Current() *models.Session
}

// Draft is the unvalidated form input.
type Draft struct {
	ContainerNumber       string
	SecondContainerNumber string
	Size                  string
	LicensePlateNumber    string
	EntryType             string
	// ContainerImage is a data URL, possibly empty.
	ContainerImage string
}

type Service struct {
	outbox     Outbox
	extractor  TextExtractor
	sessions   SessionSource
	log        logging.Logger
	ocrTimeout time.Duration

	now      func() time.Time
	newID    func() string
	compress func(string) (string, error)
}

func NewService(outbox Outbox, extractor TextExtractor, sessions SessionSource, log logging.Logger) *Service {
	return &Service{
		outbox:     outbox,
		extractor:  extractor,
		sessions:   sessions,
		log:        log.With("module", "capture"),
		ocrTimeout: defaultOCRTimeout,
		now:        time.Now,
		newID:      uuid.NewString,
		compress: func(s string) (string, error) {
			return imagex.Compress(s, imagex.DefaultMaxWidth, imagex.DefaultQuality)
		},
	}
}

func (s *Service) compressOrKeep(ctx context.Context, image string) string {
	out, err := s.compress(image)
	if err != nil {
		s.log.Warn(ctx, "image compression failed, keeping original", "error", err)
		return image
	}
	return out
}

// Extract runs OCR on image. ok is false when nothing usable came back, the
// caller then asks the operator to type the value.
func (s *Service) Extract(ctx context.Context, kind, image string) (text string, ok bool) {
	if image == "" || s.extractor == nil {
		return "", false
	}
	image = s.compressOrKeep(ctx, image)

	ctx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()

	got, err := s.extractor.ExtractText(ctx, kind, image)
	if err != nil {
		s.log.Warn(ctx, "text extraction failed", "kind", kind, "error", err)
		return "", false
	}
	if got == "" || got == common.UnableToRead {
		return "", false
	}
	return got, true
}

// Submit validates d and writes it to the outbox on behalf of the signed-in
// user.
func (s *Service) Submit(ctx context.Context, d Draft) (*models.PendingEntry, error) {
	sess := s.sessions.Current()
	if sess == nil {
		return nil, session.ErrNoSession
	}

	number, err := models.NormalizeContainerNumber(d.ContainerNumber)
	if err != nil {
		return nil, err
	}
	var second string
	if strings.TrimSpace(d.SecondContainerNumber) != "" {
		if second, err = models.NormalizeContainerNumber(d.SecondContainerNumber); err != nil {
			return nil, err
		}
	}
	size, err := models.ParseContainerSize(d.Size)
	if err != nil {
		return nil, err
	}
	typ, err := models.ParseEntryType(d.EntryType)
	if err != nil {
		return nil, err
	}

	image := d.ContainerImage
	if image != "" {
		if err := ocr.ValidateImageData(image); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
		}
		image = s.compressOrKeep(ctx, image)
	}

	e := &models.PendingEntry{
		ID:                    s.newID(),
		ContainerNumber:       number,
		SecondContainerNumber: second,
		Size:                  size,
		ContainerImage:        image,
		LicensePlateNumber:    strings.ToUpper(strings.TrimSpace(d.LicensePlateNumber)),
		EntryType:             typ,
		UserID:                sess.ID,
		UserName:              sess.Name,
		CreatedAt:             s.now(),
	}
	if err := s.outbox.AddPending(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "entry queued", "entry_id", e.ID, "container", e.ContainerNumber)
	return e, nil
}

// LoadImageFile reads a photo from disk as a data URL.
func LoadImageFile(path string) (string, error) {
	data, err := filex.ReadLimited(path, ocr.MaxImageSize)
	if err != nil {
		return "", err
	}
	url, err := imagex.FromBytes(data)
	if err != nil {
		return "", err
	}
	if err := ocr.ValidateImageData(url); err != nil {
		return "", err
	}
	return url, nil
}
