package gateway

import (
	"context"
	"net/http"

	"github.com/joao-fontenele/tradeflow/internal/domain"
)

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

// ForwardRequest replays the request against the backing service. Only the
// gateway sets the user-info header; whatever the client sent under that
// name never crosses the proxy.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path, userID string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != "" {
		req.Header.Set(domain.UserHeader, userID)
	}

	return p.client.Do(req)
}
