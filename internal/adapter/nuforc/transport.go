package nuforc

import "net/http"

// headerRoundTripper sets fixed headers on every outgoing request.
type headerRoundTripper struct {
	transport http.RoundTripper
	headers   map[string]string
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.transport.RoundTrip(req)
}
