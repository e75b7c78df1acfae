package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// DocumentTypes are the MIME types accepted for manuscripts, cover letters and
// review attachments.
var DocumentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"text/rtf",
	"text/plain",
}

// SupplementaryTypes additionally accepts archives.
var SupplementaryTypes = append(append([]string{}, DocumentTypes...),
	"application/zip",
	"application/x-7z-compressed",
	"application/gzip",
)

const sniffBytes = 3072

// Upload is a validated file ready to be stored.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	header      *multipart.FileHeader
}

// ValidateUpload checks size and sniffed content type. Errors are reported
// against field.
func ValidateUpload(field string, header *multipart.FileHeader, maxBytes int64, allowed []string) (*Upload, error) {
	if header == nil {
		return nil, fieldError(field, "No file was submitted.")
	}
	if header.Size == 0 {
		return nil, fieldError(field, "The submitted file is empty.")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, fieldError(field, fmt.Sprintf("Please keep filesize under %s. Current filesize %s.", humanSize(maxBytes), humanSize(header.Size)))
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	mt := mimetype.Detect(head[:n])
	if !mimeAllowed(mt, allowed) {
		return nil, fieldError(field, fmt.Sprintf("File type %s is not supported.", mt.String()))
	}

	return &Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: mt.String(),
		header:      header,
	}, nil
}

func mimeAllowed(mt *mimetype.MIME, allowed []string) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}

// store writes u under dir and returns the storage key.
func (u *Upload) store(ctx context.Context, st Storage, dir string) (string, error) {
	f, err := u.header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := objectKey(dir, u.Filename)
	if err := st.Save(ctx, key, f, u.Size, u.ContentType); err != nil {
		return "", fmt.Errorf("store %s: %w", u.Filename, err)
	}
	return key, nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
