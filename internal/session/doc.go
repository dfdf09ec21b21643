// Package session owns the Spotify login and everything that needs its token.
//
// # Login
//
// [Session.Login] generates a PKCE verifier and state, persists both, and navigates to the authorize URL.
// [Session.HandleRedirect] exchanges the returned code exactly once and persists the [models.Token].
// [Session.Refresh] trades the refresh token for a new access token, keeping the old refresh token when
// Spotify omits one. [Session.Logout] clears every persisted key, the profile, and the [Cache].
//
// # Reads
//
// Library and catalog reads return empty results instead of errors when no usable token exists,
// and never touch the network in that case. Results are cached per key until a mutation invalidates them.
//
// # Mutations
//
// Playlist mutations require a token and fail with [shared.ErrNotAuthenticated] without one.
// A 403 from Spotify on a playlist mutation becomes [shared.ErrNotOwner].
package session
