package core

/*
domcheck — domain availability checks over DNS and WHOIS
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

// Reason explains how an availability verdict was reached.
type Reason string

const (
	// ReasonPattern means an absence pattern matched the WHOIS text.
	ReasonPattern Reason = "pattern"
	// ReasonDNSFallback means no pattern matched and the DNS signal decided.
	ReasonDNSFallback Reason = "dns-fallback"
)

// AvailabilityResult is the outcome of classifying one domain. Available is a
// heuristic guess, never an authoritative registry answer.
type AvailabilityResult struct {
	Domain         string `json:"domain"`
	DNSResolves    bool   `json:"dns_resolves"`
	HasA           bool   `json:"has_a"`
	HasNS          bool   `json:"has_ns"`
	WhoisText      string `json:"whois"`
	WhoisServer    string `json:"whois_server,omitempty"`
	Available      bool   `json:"available"`
	MatchedPattern string `json:"matched_pattern,omitempty"`
	Reason         Reason `json:"reason"`
}

// SubdomainCandidate is the DNS picture of one label under a root domain.
type SubdomainCandidate struct {
	Label          string `json:"sub"`
	FQDN           string `json:"fqdn"`
	HasA           bool   `json:"a"`
	HasCNAME       bool   `json:"cname"`
	HasNS          bool   `json:"ns"`
	AvailableGuess bool   `json:"available"`
}

func newCandidate(label, fqdn string, hasA, hasCNAME, hasNS bool) SubdomainCandidate {
	return SubdomainCandidate{
		Label:          label,
		FQDN:           fqdn,
		HasA:           hasA,
		HasCNAME:       hasCNAME,
		HasNS:          hasNS,
		AvailableGuess: !(hasA || hasCNAME || hasNS),
	}
}
