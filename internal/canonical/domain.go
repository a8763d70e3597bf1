package canonical

import (
	"strings"

	"github.com/agentci/recorder/internal/logger"
	"golang.org/x/net/publicsuffix"
)

// DomainExtractor reduces a hostname to its registrable domain.
type DomainExtractor interface {
	// ETLDPlusOne returns the registrable domain for a lowercased host,
	// or an error when no domain/suffix can be derived.
	ETLDPlusOne(host string) (string, error)
}

// publicSuffixExtractor uses the embedded public suffix list.
type publicSuffixExtractor struct{}

func (publicSuffixExtractor) ETLDPlusOne(host string) (string, error) {
	return publicsuffix.EffectiveTLDPlusOne(host)
}

// rawHostExtractor is the fallback when suffix extraction is unavailable;
// it leaves hosts untouched.
type rawHostExtractor struct{}

func (rawHostExtractor) ETLDPlusOne(host string) (string, error) {
	return host, nil
}

// NewDomainExtractor returns the public-suffix extractor, or the raw-host
// fallback when unavailable is set.
func NewDomainExtractor(unavailable bool) DomainExtractor {
	if unavailable {
		return rawHostExtractor{}
	}
	return publicSuffixExtractor{}
}

var defaultExtractor DomainExtractor = publicSuffixExtractor{}

// ToEffectiveDomain lowercases and trims host, then reduces it to its
// eTLD+1 (e.g. "api.weather.com" -> "weather.com"). Hosts with no
// registrable domain, such as "localhost" or bare IPs, come back unchanged.
func ToEffectiveDomain(host string) string {
	return ToEffectiveDomainWith(defaultExtractor, host)
}

// ToEffectiveDomainWith is ToEffectiveDomain with an explicit extractor.
func ToEffectiveDomainWith(extractor DomainExtractor, host string) string {
	trimmed := strings.ToLower(strings.TrimSpace(host))
	if trimmed == "" {
		return trimmed
	}
	domain, err := extractor.ETLDPlusOne(trimmed)
	if err != nil || domain == "" {
		logger.Debug().Str("host", trimmed).Err(err).Msg("No registrable domain, using raw host")
		return trimmed
	}
	return domain
}
