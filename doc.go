// Package bugzilla is a typed client for the Bugzilla REST API.
//
// - Responses are checked against schemas (package schema) and decode into
//   plain structs; a mismatch reports every offending field with its path.
// - Bug queries are deferred (package query): fields can be narrowed with
//   Include/Exclude until the first consumer awaits, and the request runs once.
// - Authentication (package link) is anonymous, API key or login/password;
//   the password strategy logs in once and shares the token between requests.
//
// Typical usage:
//
//  c, err := bugzilla.New("https://bugzilla.example.com", link.APIKey(key))
//  bugs, err := c.Quicksearch("product:Firefox crash").Include("id", "summary").Await(ctx)
//  updated, err := c.UpdateBug(ctx, "1234", bugzilla.UpdateBugRequest{Status: "RESOLVED", Resolution: "FIXED"})
package bugzilla
