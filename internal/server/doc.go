// Package server provides HTTP routing, middleware, and the OAuth redirect
// listener used by `spx auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied so the first one added runs outermost.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on an [http.ServeMux].
//
// # Redirect Handler
//
// [CallbackHandler] receives the authorization redirect, hands the URL to the
// session to exchange the code, then redirects the browser to the same URL
// without code and state so a reload cannot exchange it again. The outcome is
// delivered once on [CallbackHandler.Result].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
