// Package acl is the anti-corruption layer between the quote service and the
// third-party APIs it calls.
//
// Each adapter owns the external DTOs of one API and translates them into
// [domain.QuoteData] or [domain.Image]. DTOs never leave this package.
//
// # Adapters
//
//   - [QuoteAPI]: one per quote source ([APINinjasKey], [ProgrammingKey], [ZenKey])
//   - [UnsplashClient]: random photo search used to illustrate quotes
//   - [CachedImageSearcher]: caches image lookups by query
//
// All of them call through the instrumented [clients.Client], which adds
// retries, the circuit breaker and tracing.
//
// # Error Handling
//
// The quote service only distinguishes "the API could not give us a quote"
// from everything else, so every failure leaves this package as a
// [domain.UnavailableError] naming the API:
//
//   - transport errors, open circuit, exhausted retries
//   - any non-2xx status (429 is reported as a rate limit)
//   - undecodable bodies, empty arrays and empty quote text
package acl
