// Package ytdlp fetches remote media through the yt-dlp binary.
//
// A fetch runs in two steps. Probe asks yt-dlp for metadata only (-J
// --skip-download) so callers can apply policy, such as a duration ceiling,
// before any bytes are transferred. Download then saves the media into the
// output directory and reports the final file path.
//
// Failures are classified from yt-dlp's stderr into ErrPrivate,
// ErrUnreachable and ErrInvalid. Hosts outside the configured allow list are
// rejected with ErrInvalid before yt-dlp runs.
package ytdlp
