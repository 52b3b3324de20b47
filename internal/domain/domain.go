package domain

import "strings"

// Domain represents one tracked site scoped to an account.
// The backend assigns the ID; DomainURL is stored in normalized
// "https://host" form with no trailing slash.
type Domain struct {
	ID               int64  `json:"id" bson:"id"`
	DomainURL        string `json:"domain_url" bson:"domain_url"`
	DataProviderID   int64  `json:"data_provider_id" bson:"data_provider_id"`
	IsPixelInstalled bool   `json:"is_pixel_installed" bson:"is_pixel_installed"`
	Enabled          bool   `json:"enabled" bson:"enabled"`
}

// canonicalHost reduces a domain string to the form used for equality:
// lowercase, no scheme, no www. prefix, no trailing slash.
func canonicalHost(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimRight(s, "/")
	return s
}

// NormalizeDomainURL returns the stored form of a domain string
// ("https://host"), or "" if the input reduces to nothing.
func NormalizeDomainURL(raw string) string {
	host := canonicalHost(raw)
	if host == "" {
		return ""
	}
	return "https://" + host
}

// DomainURLsEqual reports whether two domain strings identify the same
// domain. Scheme, "www." prefix and trailing slashes never distinguish
// two domains.
func DomainURLsEqual(a, b string) bool {
	ha := canonicalHost(a)
	if ha == "" {
		return false
	}
	return ha == canonicalHost(b)
}

// ConfirmationMatches reports whether a user-typed confirmation string
// identifies the stored domain. Deleting a domain requires this to hold;
// a non-empty but wrong string never matches.
func ConfirmationMatches(typed, stored string) bool {
	return DomainURLsEqual(typed, stored)
}

// DomainSnapshot is the session-scoped view of the domain facts shared
// by every attached consumer: the known domains and the single active
// selection (empty when none is active).
type DomainSnapshot struct {
	Domains         []Domain `json:"domains"`
	ActiveDomainURL string   `json:"active_domain_url"`
}

// Equal compares snapshots by value.
func (s DomainSnapshot) Equal(other DomainSnapshot) bool {
	if s.ActiveDomainURL != other.ActiveDomainURL {
		return false
	}
	if len(s.Domains) != len(other.Domains) {
		return false
	}
	for i := range s.Domains {
		if s.Domains[i] != other.Domains[i] {
			return false
		}
	}
	return true
}

// ActiveDomain returns the domain matching the active selection, or nil.
func (s DomainSnapshot) ActiveDomain() *Domain {
	if s.ActiveDomainURL == "" {
		return nil
	}
	for i := range s.Domains {
		if DomainURLsEqual(s.Domains[i].DomainURL, s.ActiveDomainURL) {
			return &s.Domains[i]
		}
	}
	return nil
}

// FindByID returns the domain with the given id, or nil.
func (s DomainSnapshot) FindByID(id int64) *Domain {
	for i := range s.Domains {
		if s.Domains[i].ID == id {
			return &s.Domains[i]
		}
	}
	return nil
}
