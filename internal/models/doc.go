// Package models defines the domain entities shared by the session, playback and presentation layers.
//
//   - [Track], [Album], [Artist], [Playlist], [User] : catalog and library objects converted from Spotify responses
//   - [SearchResults] : grouped search hits
//   - [Token] : the persisted OAuth2 token and its key/value storage layout
//
// [Token.Values] and [TokenFromValues] define how a token is written to the durable key/value store
// under [KeyAccessToken], [KeyRefreshToken], [KeyExpiresIn] and [KeyExpires].
package models
