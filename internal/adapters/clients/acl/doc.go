// Package acl is the anti-corruption layer between the application and the
// remote quote collection. The remote speaks in posts (id, title, body,
// userId); the application speaks in quotes (text, category). Nothing outside
// this package sees a post.
//
// Translation rules:
//
//	post.title  -> quote.text      (blank titles are dropped)
//	"Server"    -> quote.category  (every fetched quote)
//	quote.text     -> post.title   (publish)
//	quote.category -> post.body    (publish)
//
// The adapter absorbs every transport failure: a failed fetch is an empty
// batch and a failed publish is domain.PublishFailed. Failures are classified
// into domain errors by MapError for logging and health checks.
package acl
