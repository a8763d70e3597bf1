package intercept

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/agentci/recorder/internal/canonical"
	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/recorder"
)

// Transport is a recording http.RoundTripper. It emits one net_outbound
// effect per request before handing the request to the underlying transport,
// so failed requests still appear in the trace.
type Transport struct {
	inner http.RoundTripper
	ctx   *recorder.Context
}

// NewTransport wraps a RoundTripper with effect recording. A nil inner
// transport uses http.DefaultTransport.
func NewTransport(ctx *recorder.Context, inner http.RoundTripper) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &Transport{inner: inner, ctx: ctx}
}

// NewHTTPClient returns a copy of base whose transport records outbound
// requests. A nil base starts from a zero http.Client.
func NewHTTPClient(ctx *recorder.Context, base *http.Client) *http.Client {
	client := http.Client{}
	if base != nil {
		client = *base
	}
	client.Transport = NewTransport(ctx, client.Transport)
	return &client
}

// RoundTrip records the outbound request, then delegates unchanged.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.record(req)
	return t.inner.RoundTrip(req)
}

func (t *Transport) record(req *http.Request) {
	if req == nil || req.URL == nil {
		return
	}

	host := req.URL.Hostname()
	if host == "" && req.Host != "" {
		if h, _, err := net.SplitHostPort(req.Host); err == nil {
			host = h
		} else {
			// No port; strip IPv6 brackets to match URL.Hostname
			host = strings.Trim(req.Host, "[]")
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	protocol := "http"
	if strings.EqualFold(req.URL.Scheme, "https") {
		protocol = "https"
	}

	port := 0
	if p := req.URL.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	t.ctx.Emit(event.EffectEventData{
		Category: event.CategoryNetOutbound,
		Kind:     event.KindObserved,
		Net: &event.NetEffectData{
			HostRaw:       host,
			HostETLDPlus1: canonical.ToEffectiveDomain(host),
			Method:        strings.ToUpper(method),
			Protocol:      protocol,
			Port:          port,
		},
	})
}
