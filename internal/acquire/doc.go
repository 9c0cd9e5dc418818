// Package acquire resolves a submission's source into something the analysis
// stage can consume.
//
// Uploads are already on disk; acquisition only probes their duration with
// ffprobe, and a failed probe leaves the duration unknown rather than failing
// the job. Links go through yt-dlp: metadata first, so an over-long video is
// refused before it is downloaded, then the download itself, then a second
// duration check against the file that actually arrived. Scripts need no
// acquisition at all.
//
// Every failure is reported as ErrAcquisitionFailed, wrapping the specific
// cause (ErrDurationExceeded, ytdlp.ErrPrivate, ytdlp.ErrUnreachable,
// ytdlp.ErrInvalid, ...). Stage adapts the Acquirer to the workflow and
// records the acquired fields on the media item.
package acquire
