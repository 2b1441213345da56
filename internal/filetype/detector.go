// Package filetype checks, via magic bytes rather than filename, that a
// source document is something the extractor can read.
package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info describes a detected source document type.
type Info struct {
	MIMEType  string
	Extension string
	IsPDF     bool
	IsText    bool
}

// UnsupportedTypeError marks a source the pipeline cannot extract.
type UnsupportedTypeError struct {
	MIMEType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported source type %s (expected pdf or plain text)", e.MIMEType)
}

// Kind returns the stable machine-readable error kind.
func (e *UnsupportedTypeError) Kind() string { return "unsupported_type" }

// Detect inspects the file's magic bytes. Only PDF and plain text are
// supported; anything else is an UnsupportedTypeError.
func Detect(path string) (*Info, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}

	mime := mtype.String()
	log.Debug().Str("mime", mime).Str("ext", mtype.Extension()).Str("file", path).Msg("detected source type")

	info := &Info{MIMEType: mime, Extension: mtype.Extension()}
	switch {
	case mime == "application/pdf":
		info.IsPDF = true
	case strings.HasPrefix(mime, "text/"):
		info.IsText = true
	default:
		return nil, &UnsupportedTypeError{MIMEType: mime}
	}
	return info, nil
}
