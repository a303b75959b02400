// Package transport provides the HTTP client used to reach Beward panels.
//
// Client implements cgi.Transport: it builds the request URL from the
// panel base URL and the endpoint path, adds HTTP Basic Auth, attaches
// multipart files to uploads and retries network failures and 5xx replies
// with exponential backoff. Replies are returned unparsed; interpreting the
// status and body is the job of the cgi package.
//
// # Usage Example
//
//	client := transport.NewClient("10.0.0.2", 80, false)
//	client.SetAuth("admin", "secret")
//
//	ntp, _ := cgi.NewByName(client, "ntp")
//	if err := ntp.Load(ctx); err != nil {
//	    log.Fatal(err)
//	}
package transport
