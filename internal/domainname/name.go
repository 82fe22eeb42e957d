/*
Package domainname validates and normalizes the domain names accepted at the
input boundary of domcheck. Core components assume a Name produced by Parse and
do not re-validate its shape.
*/
package domainname

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

import (
	"errors"
	"regexp"
	"strings"
)

// Validation errors returned by Parse. Messages match what the web front end shows.
var (
	ErrEmpty   = errors.New("enter a domain name (example: example.com)")
	ErrInvalid = errors.New("this does not look like a valid domain name")
)

// shape is the accepted input form: label(.label)*.tld with an alphabetic TLD of 2+ chars.
var shape = regexp.MustCompile(`(?i)^[a-z0-9.-]+\.[a-z]{2,}$`)

// Name is a validated, lower-cased domain name. Immutable once created.
type Name string

// Parse trims and validates raw user input and returns its normalized Name.
func Parse(raw string) (Name, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmpty
	}
	if !shape.MatchString(trimmed) {
		return "", ErrInvalid
	}
	return Name(strings.ToLower(trimmed)), nil
}

// MustParse is Parse for constants and tests. It panics on invalid input.
func MustParse(raw string) Name {
	n, err := Parse(raw)
	if err != nil {
		panic("domainname: " + err.Error() + ": " + raw)
	}
	return n
}

// String implements fmt.Stringer.
func (n Name) String() string { return string(n) }

// Labels returns the dot-separated labels of the name.
func (n Name) Labels() []string {
	if n == "" {
		return nil
	}
	return strings.Split(string(n), ".")
}

// TLD returns the rightmost label, or "" when the name has fewer than two labels.
func (n Name) TLD() string {
	labels := n.Labels()
	if len(labels) < 2 {
		return ""
	}
	return labels[len(labels)-1]
}

// Join builds the lower-cased FQDN label + "." + n. The label is trimmed first;
// an empty label yields "".
func (n Name) Join(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	return strings.ToLower(label + "." + string(n))
}

// Normalize standardizes a host name: trims spaces, lower-cases and strips
// leading and trailing dots. Anything that contains inner whitespace is returned
// as "" since it can never be a host name.
func Normalize(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.ContainsAny(domain, " \t\r\n") {
		return ""
	}
	domain = strings.ToLower(domain)
	domain = strings.TrimLeft(domain, ".")
	domain = strings.TrimRight(domain, ".")
	return domain
}
