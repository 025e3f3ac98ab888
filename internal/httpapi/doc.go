// Package httpapi serves the HTTP+JSON boundary of the survey service.
//
// Routes:
//
//	GET  /api/items?rater=R&limit=N       selected batch for one session
//	POST /api/items/:id/increment-usage   blind usage_count += 1
//	POST /api/judgments                   store one judgment
//	GET  /api/judgments?rater=&limit=     history, newest first
//	GET  /api/stats                       aggregate counts
//
// The exposure selector runs server-side inside GET /api/items, over the
// eligible snapshot for the requesting rater. An empty array is a valid
// "no work" response, not an error.
package httpapi
