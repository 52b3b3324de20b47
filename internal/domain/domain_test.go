package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomainURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare host", raw: "example.com", want: "https://example.com"},
		{name: "http scheme", raw: "http://example.com", want: "https://example.com"},
		{name: "https scheme", raw: "https://example.com", want: "https://example.com"},
		{name: "www prefix", raw: "www.example.com", want: "https://example.com"},
		{name: "trailing slash", raw: "example.com/", want: "https://example.com"},
		{name: "everything at once", raw: "https://www.Example.com/", want: "https://example.com"},
		{name: "surrounding whitespace", raw: "  example.com  ", want: "https://example.com"},
		{name: "subdomain kept", raw: "shop.example.com", want: "https://shop.example.com"},
		{name: "empty", raw: "", want: ""},
		{name: "scheme only", raw: "https://", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDomainURL(tt.raw))
		})
	}
}

func TestDomainURLsEqual(t *testing.T) {
	variants := []string{
		"example.com",
		"http://example.com",
		"https://example.com",
		"www.example.com",
		"https://www.example.com",
		"example.com/",
		"https://www.example.com/",
	}

	// Every pair of variants names the same domain.
	for _, a := range variants {
		for _, b := range variants {
			assert.True(t, DomainURLsEqual(a, b), "%q and %q should be equal", a, b)
		}
	}

	assert.False(t, DomainURLsEqual("example.com", "example.org"))
	assert.False(t, DomainURLsEqual("example.com", "shop.example.com"))
	assert.False(t, DomainURLsEqual("", "example.com"))
	assert.False(t, DomainURLsEqual("", ""))
}

func TestConfirmationMatches(t *testing.T) {
	stored := "https://example.com"

	assert.True(t, ConfirmationMatches("example.com", stored))
	assert.True(t, ConfirmationMatches("https://example.com", stored))
	assert.True(t, ConfirmationMatches("https://www.example.com", stored))
	assert.False(t, ConfirmationMatches("example.org", stored))
	assert.False(t, ConfirmationMatches("", stored))
}

func TestSnapshotEqual(t *testing.T) {
	a := DomainSnapshot{
		Domains:         []Domain{{ID: 1, DomainURL: "https://example.com"}},
		ActiveDomainURL: "https://example.com",
	}
	b := DomainSnapshot{
		Domains:         []Domain{{ID: 1, DomainURL: "https://example.com"}},
		ActiveDomainURL: "https://example.com",
	}

	assert.True(t, a.Equal(b), "snapshots compare by value, not reference")

	b.Domains[0].IsPixelInstalled = true
	assert.False(t, a.Equal(b))

	b.Domains[0].IsPixelInstalled = false
	b.ActiveDomainURL = ""
	assert.False(t, a.Equal(b))
}

func TestSnapshotActiveDomain(t *testing.T) {
	snapshot := DomainSnapshot{
		Domains: []Domain{
			{ID: 1, DomainURL: "https://one.com"},
			{ID: 2, DomainURL: "https://two.com"},
		},
		ActiveDomainURL: "https://two.com",
	}

	active := snapshot.ActiveDomain()
	assert.NotNil(t, active)
	assert.Equal(t, int64(2), active.ID)

	snapshot.ActiveDomainURL = ""
	assert.Nil(t, snapshot.ActiveDomain())
}
