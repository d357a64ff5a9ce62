/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cascade

// Client side API client calls, descended from the teacher's ApiClient
// (apiclient.go); trimmed to the single X-API-Key auth method Cascade's
// apiserver.go actually implements, since the teacher's pluggable
// AuthMethod/TLSA verification machinery has no corresponding server
// side here.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type ApiClient struct {
	Name    string
	BaseUrl string
	apiKey  string
	Client  *http.Client
	Verbose bool
	Debug   bool
}

func NewClient(name, baseurl, apikey string, verbose, debug bool) *ApiClient {
	return &ApiClient{
		Name:    name,
		BaseUrl: baseurl,
		apiKey:  apikey,
		Client:  &http.Client{},
		Verbose: verbose,
		Debug:   debug,
	}
}

func (api *ApiClient) requestHelper(req *http.Request) (int, []byte, error) {
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("X-API-Key", api.apiKey)

	resp, err := api.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("cascade: apiclient: %w", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("cascade: apiclient: reading response: %w", err)
	}
	if api.Debug {
		var pretty bytes.Buffer
		if json.Indent(&pretty, buf, "", "  ") == nil {
			fmt.Printf("apiclient: received %d bytes:\n%s\n", len(buf), pretty.String())
		}
	}
	return resp.StatusCode, buf, nil
}

func (api *ApiClient) Post(endpoint string, data []byte) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodPost, api.BaseUrl+endpoint, bytes.NewBuffer(data))
	if err != nil {
		return 0, nil, fmt.Errorf("cascade: apiclient: %w", err)
	}
	return api.requestHelper(req)
}

// PostJSON marshals v, posts it to endpoint, and unmarshals the response
// into out (if non-nil). A non-2xx status is reported as an error
// carrying the server's {"error": ...} body when present.
func (api *ApiClient) PostJSON(endpoint string, v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cascade: apiclient: marshal request: %w", err)
	}
	status, body, err := api.Post(endpoint, data)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Error != "" {
			return fmt.Errorf("cascade: apiclient: %s: %s", endpoint, ae.Error)
		}
		return fmt.Errorf("cascade: apiclient: %s: status %d", endpoint, status)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("cascade: apiclient: unmarshal response: %w", err)
		}
	}
	return nil
}
