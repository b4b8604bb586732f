// Package token encodes subject identifiers into scannable QR images and
// decodes captured frames back into identifiers.
package token

import (
	"errors"
	"image"
	"strconv"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrNoSymbol is returned when a frame contains no decodable symbol. The
// scan loop treats it as "keep looking", not as a failure.
var ErrNoSymbol = errors.New("token: no symbol in frame")

// ErrInvalidPayload is returned when a symbol decoded but its payload is
// not an integer subject identifier. This is a terminal outcome.
var ErrInvalidPayload = errors.New("token: payload is not a subject id")

const defaultImageSize = 200

// Codec converts subject ids to and from QR symbols. Safe for concurrent
// use; a fresh reader is built per decode since the zxing reader keeps
// internal state.
type Codec struct {
	size int
}

// NewCodec returns a codec producing images of the given pixel size.
func NewCodec(size int) *Codec {
	if size <= 0 {
		size = defaultImageSize
	}
	return &Codec{size: size}
}

// Encode renders the subject id into a PNG. The output is deterministic
// for a given id and codec size, so re-issuing a token for the same
// subject produces an identical artifact.
func (c *Codec) Encode(subjectID int64) ([]byte, error) {
	return qrcode.Encode(strconv.FormatInt(subjectID, 10), qrcode.Medium, c.size)
}

// Decode scans a single frame for a QR symbol and parses its payload as a
// subject id. Symbols that fail to decode at all yield ErrNoSymbol; a
// decoded symbol with a non-integer payload yields ErrInvalidPayload.
// When a frame holds several symbols the first decoded one wins; with only
// one session ever active this is acceptable.
func (c *Codec) Decode(frame image.Image) (int64, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return 0, ErrNoSymbol
	}

	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		var reader gozxing.ReaderException
		if errors.As(err, &reader) {
			return 0, ErrNoSymbol
		}
		return 0, err
	}

	payload := strings.TrimSpace(result.GetText())
	subjectID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return 0, ErrInvalidPayload
	}
	return subjectID, nil
}
