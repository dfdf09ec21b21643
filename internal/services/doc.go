// Package services talks HTTP to the Spotify Web API and accounts service.
//
// # Transport
//
// [APIService] sends every request through a client-side [rate.Limiter] and retries
// HTTP 429 responses after the server's Retry-After delay (seconds or HTTP date, default 1s).
// Retries are unbounded unless [WithMaxRetries] sets a cap.
// Any other non-2xx status becomes an [*APIError] carrying the vendor message when the body has one,
// in either the Web API shape {"error":{"status","message"}} or the accounts shape {"error","error_description"}.
//
// # Wire Types
//
// The Spotify* types mirror Web API JSON and convert to models.Track, models.Playlist and friends
// through their Model methods. Local files and null playlist entries are skipped during conversion.
package services
