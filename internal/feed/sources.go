package feed

import "github.com/cyberstreams/intelcore/internal/domain"

// DefaultSources returns the built-in set of authorized advisory feeds.
// The seed command upserts these into the sources table; operators can
// disable or extend them afterwards.
func DefaultSources() []*domain.Source {
	return []*domain.Source{
		{ID: "ncsc-uk", Name: "NCSC UK", URL: "https://ncsc.gov.uk", FeedURL: "https://ncsc.gov.uk/api/1/services/v1/all-rss-feed.xml", Enabled: true},
		{ID: "bsi-cert-bund", Name: "BSI CERT-Bund", URL: "https://bsi.bund.de", FeedURL: "https://bsi.bund.de/rss/advisories", Enabled: true},
		{ID: "cert-dk-cfcs", Name: "CERT.dk / CFCS", URL: "https://cfcs.dk", FeedURL: "https://cfcs.dk/da/nyheder/rss", Enabled: true},
		{ID: "circl-lu", Name: "CIRCL Luxembourg", URL: "https://circl.lu", FeedURL: "https://circl.lu/rss/advisories", Enabled: true},
		{ID: "cert-fi", Name: "CERT.fi / NCSC-FI", URL: "https://traficom.fi", FeedURL: "https://traficom.fi/en/rss/cyber-security", Enabled: true},
		{ID: "cert-ee", Name: "CERT.ee", URL: "https://cert.ee", FeedURL: "https://cert.ee/en/rss/advisories", Enabled: true},
		{ID: "cert-at", Name: "CERT.at", URL: "https://cert.at", FeedURL: "https://cert.at/feeds/advisories.xml", Enabled: true},
		{ID: "csirt-italia", Name: "CSIRT Italia", URL: "https://csirt.gov.it", FeedURL: "https://csirt.gov.it/rss/advisories", Enabled: true},
		{ID: "ncsc-nl", Name: "NCSC.nl / GovCERT.NL", URL: "https://ncsc.nl", FeedURL: "https://ncsc.nl/rss/advisories", Enabled: true},
		{ID: "cert-be", Name: "CERT.be", URL: "https://cert.be", FeedURL: "https://cert.be/en/rss/advisories", Enabled: true},
		{ID: "govcert-lu", Name: "GovCERT Luxembourg", URL: "https://govcert.lu", FeedURL: "https://govcert.lu/en/advisories.rss", Enabled: true},
		{ID: "csirt-ie", Name: "CSIRT-IE", URL: "https://ncsc.gov.ie", FeedURL: "https://ncsc.gov.ie/rss/advisories", Enabled: true},
		{ID: "cert-pl", Name: "CERT.pl", URL: "https://cert.pl", FeedURL: "https://cert.pl/en/rss/advisories", Enabled: true},
		{ID: "cert-ro", Name: "CERT-RO", URL: "https://cert.ro", FeedURL: "https://cert.ro/rss/alerts", Enabled: true},
		{ID: "csirt-cz", Name: "CSIRT.cz", URL: "https://csirt.cz", FeedURL: "https://csirt.cz/en/rss/advisories", Enabled: true},
	}
}
