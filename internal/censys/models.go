/*
Package censys is a small client for the Censys certificate search API.

It issues one logical search, walks the result pages the API reports and
returns the raw records. Authentication and quota failures are reported as
sentinel errors so callers can decide how to exit.
*/
package censys

/*
censub — find subdomains through Censys certificate search
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"encoding/json"
	"fmt"
)

// FieldParsedNames is the certificate field holding subject and SAN names.
const FieldParsedNames = "parsed.names"

// CertificatesPath is appended to the API base URL for certificate searches.
const CertificatesPath = "/search/certificates"

// NamesQuery builds the query matching certificates whose names contain domain.
func NamesQuery(domain string) string {
	return FieldParsedNames + ": " + domain
}

// Record is one search hit, keyed by the (flattened) field names requested.
// Values are kept raw; only the requested fields are guaranteed to be present.
type Record map[string]json.RawMessage

// Strings decodes field as a list of strings.
// A missing or null field yields an empty list.
func (r Record) Strings(field string) ([]string, error) {
	raw, ok := r[field]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("field %s is not a list of strings: %w", field, err)
	}
	return out, nil
}

// searchRequest is the JSON body POSTed to the search endpoint.
type searchRequest struct {
	Query   string   `json:"query"`
	Page    int      `json:"page"`
	Fields  []string `json:"fields"`
	Flatten bool     `json:"flatten"`
}

// searchResponse is one page of results.
type searchResponse struct {
	Status   string   `json:"status"`
	Results  []Record `json:"results"`
	Metadata struct {
		Query       string `json:"query"`
		Count       int    `json:"count"`
		BackendTime int    `json:"backend_time"`
		Page        int    `json:"page"`
		Pages       int    `json:"pages"`
	} `json:"metadata"`
}

// errorResponse is the body Censys sends alongside non-2xx statuses.
type errorResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}
