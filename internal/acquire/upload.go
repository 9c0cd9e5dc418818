package acquire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var uploadTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// UploadExtensions lists the accepted upload extensions.
func UploadExtensions() []string {
	out := make([]string, 0, len(uploadTypes))
	for ext := range uploadTypes {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// CheckUploadName validates the client-supplied file name and returns its
// normalized extension.
func CheckUploadName(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if _, ok := uploadTypes[ext]; !ok {
		return "", fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedUpload, filepath.Base(name), strings.Join(UploadExtensions(), " "))
	}
	return ext, nil
}

// MIMEType returns the video MIME type for a stored media path.
func MIMEType(path string) string {
	if mime, ok := uploadTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "video/mp4"
}

// SaveUpload streams r into dir under a random name that keeps the original
// extension. Bodies over maxBytes are removed and rejected. A non-positive
// maxBytes disables the limit.
func SaveUpload(dir, name string, r io.Reader, maxBytes int64) (string, error) {
	ext, err := CheckUploadName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	target := filepath.Join(dir, uuid.NewString()+ext)
	partial := target + ".part"

	file, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if maxBytes > 0 && written > maxBytes {
		_ = os.Remove(partial)
		return "", fmt.Errorf("%w: more than %d bytes", ErrUploadTooLarge, maxBytes)
	}
	if written == 0 {
		_ = os.Remove(partial)
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedUpload)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return target, nil
}
