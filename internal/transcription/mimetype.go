package transcription

import "strings"

// DefaultMIMEType is assumed when neither the file name nor the caller names a type.
const DefaultMIMEType = "audio/mp4"

// NormalizeMIMEType picks the MIME type sent to the provider. Browsers and
// file managers report m4a and mp3 inconsistently, so the extension wins for those.
func NormalizeMIMEType(filename, declared string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".m4a"):
		return "audio/mp4"
	case strings.HasSuffix(name, ".mp3"):
		return "audio/mp3"
	}
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return DefaultMIMEType
	}
	return declared
}
