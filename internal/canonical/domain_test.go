package canonical

import "testing"

func TestToEffectiveDomain(t *testing.T) {
	cases := map[string]string{
		"api.weather.com":     "weather.com",
		"weather.com":         "weather.com",
		"deep.sub.bbc.co.uk":  "bbc.co.uk",
		"localhost":           "localhost",
		"  API.Weather.COM  ": "weather.com",
		"":                    "",
	}

	for host, want := range cases {
		if got := ToEffectiveDomain(host); got != want {
			t.Errorf("ToEffectiveDomain(%q) = %q, want %q", host, got, want)
		}
	}
}

func TestToEffectiveDomainFallbackExtractor(t *testing.T) {
	extractor := NewDomainExtractor(true)

	if got := ToEffectiveDomainWith(extractor, "api.weather.com"); got != "api.weather.com" {
		t.Errorf("Expected raw host from fallback extractor, got %q", got)
	}
	if got := ToEffectiveDomainWith(extractor, "  LocalHost "); got != "localhost" {
		t.Errorf("Expected trimmed lowercase host, got %q", got)
	}
}
