// Package tracker provides a session-based client for the tracker's
// Web Services API (v2.0 wire shape).
//
// Usage:
//
//	client, err := tracker.New(baseURL, apiKey, tracker.WithTimeout(30*time.Second))
//	sess, err := client.Open(ctx)
//	defer sess.Close()
//	res, err := sess.Query(ctx, &tracker.QueryRequest{
//		Type:   "project",
//		Fetch:  []string{"Name", "_ref"},
//		Filter: tracker.Eq("Name", "Platform"),
//	})
//
// A query, create or update that reaches the service always returns a
// result carrying the service's Errors list; only transport failures and
// non-2xx responses are returned as Go errors (*APIError for the latter).
package tracker
