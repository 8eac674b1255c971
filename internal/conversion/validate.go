package conversion

import (
	"fileconv/internal/pkg/errors"
)

// ValidateUpload checks presence, filename and extension. It has no side effects.
func ValidateUpload(up Upload, spec *Spec) error {
	if !up.Present {
		return errors.ValidationField("file", "No file provided")
	}
	if up.Filename == "" {
		return errors.ValidationField("file", "No file selected")
	}
	if up.Body == nil {
		return errors.ValidationField("file", "No file provided")
	}
	_, ext, ok := SplitExt(up.Filename)
	if !ok || !spec.Accepts(ext) {
		return errors.ValidationField("file", "Invalid file type. Please upload "+spec.AcceptList()).
			WithField("filename", up.Filename)
	}
	return nil
}
