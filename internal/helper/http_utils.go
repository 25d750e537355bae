package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hetiansu5/urlquery"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var HttpClient = &http.Client{
	Timeout:   30 * time.Second,
	Transport: otelhttp.NewTransport(http.DefaultTransport),
}

func HttpRequest[T any](ctx context.Context, method string, baseUrl string, path string, q any, headers *map[string]string, ioreader io.Reader, out *T) (int, []byte, error) {
	api_path := &url.URL{Path: path}
	if q != nil {
		queries, errV := urlquery.Marshal(q)
		if errV != nil {
			return http.StatusInternalServerError, nil, fmt.Errorf("failed to encode HTTP query string: %w", errV)
		} // end if
		api_path.RawQuery = string(queries)
	} // end if
	parsed_url, errU := url.Parse(baseUrl)
	if errU != nil {
		return http.StatusInternalServerError, nil, fmt.Errorf("failed to parse URL: %w", errU)
	} // end if
	u := parsed_url.ResolveReference(api_path)
	req, errN := http.NewRequestWithContext(ctx, method, u.String(), ioreader)
	if errN != nil {
		return http.StatusInternalServerError, nil, fmt.Errorf("failed to create HTTP request: %w", errN)
	} // end if
	if headers != nil {
		for headerK, headerV := range *headers {
			req.Header.Add(headerK, headerV)
		} // end for
	} // end if
	resp, errDo := HttpClient.Do(req)
	if errDo != nil {
		return http.StatusInternalServerError, nil, fmt.Errorf("failed to call HTTP API '%s': %w", u.Path, errDo)
	} // end if
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		content, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, content, fmt.Errorf("HTTP API '%s' responded %s", u.Path, resp.Status)
	} // end if
	if out != nil {
		if errD := json.NewDecoder(resp.Body).Decode(out); errD != nil {
			return resp.StatusCode, nil, fmt.Errorf("failed to decode JSON response: %w", errD)
		} // end if
		return resp.StatusCode, nil, nil
	} // end if
	content, errIo := io.ReadAll(resp.Body)
	return resp.StatusCode, content, errIo
} // end HttpRequest()

func HttpGetRequest[T any](ctx context.Context, baseUrl string, path string, q any, headers *map[string]string, output *T) (int, []byte, error) {
	return HttpRequest(ctx, http.MethodGet, baseUrl, path, q, headers, nil, output)
} // end HttpGetRequest()
