package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidSegment is returned for names that cannot be one segment of an
// object key.
var ErrInvalidSegment = errors.New("invalid key segment")

var lower = cases.Lower(language.Und)

// CheckSegment rejects names that would escape their key prefix.
func CheckSegment(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSegment, s)
	}
	return nil
}

// WordImagePath returns the object key of a word's illustration. The same
// inputs always produce the same key.
func WordImagePath(userID, recordID, word, ext string) string {
	w := url.PathEscape(lower.String(strings.TrimSpace(word)))
	return fmt.Sprintf("%s/%s/%s.%s", userID, recordID, w, ext)
}

// RecordPrefix is the key prefix under which a record's media is stored.
func RecordPrefix(userID, recordID string) string {
	return userID + "/" + recordID + "/"
}

// SourceImagePath returns the object key of an uploaded worksheet photo.
func SourceImagePath(userID string, at time.Time) string {
	return fmt.Sprintf("%s/%d.jpg", userID, at.UnixMilli())
}

// escapeKey escapes each segment of key for use in a URL path.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
