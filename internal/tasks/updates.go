package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

type Phase int

const (
	FetchPlaylists Phase = iota
	FetchTracks
	ExportPlaylist
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchTracks:
		return "fetch_tracks"
	case ExportPlaylist:
		return "export_playlist"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchingPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchPlaylists, Step: 1, Total: 1, Message: "Fetching playlists..."}
}

func fetchingTracksUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching tracks for %q (%d/%d)", name, step, total),
	}
}

func exportedPlaylistUpdate(step, total int, res PlaylistExportResult) ProgressUpdate {
	msg := fmt.Sprintf("Exported %q (%d/%d)", res.PlaylistName, step, total)
	if !res.Success {
		msg = fmt.Sprintf("Failed %q (%d/%d): %s", res.PlaylistName, step, total, res.ErrorMessage)
	}
	return ProgressUpdate{Phase: ExportPlaylist, Step: step, Total: total, Message: msg, Data: res}
}

func writingManifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteManifest, Step: 1, Total: 1, Message: "Writing manifest " + path}
}

// sendProgress never blocks; updates are dropped when the reader is behind.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
