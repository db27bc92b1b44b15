package providerfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var _ authflow.Provider = (*FakeProvider)(nil)

// FakeProvider is a configurable authflow.Provider double. Each operation
// counts its calls and can be overridden per test.
type FakeProvider struct {
	lock sync.Mutex

	AuthCodeURLFunc   func(state string, opts ...oauth2.AuthCodeOption) string
	ExchangeFunc      func(ctx context.Context, code string) (*oauth2.Token, error)
	VerifyIDTokenFunc func(ctx context.Context, rawIDToken string) (*authflow.Identity, error)
	RefreshFunc       func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	RevokeFunc        func(ctx context.Context, token string) error

	ExchangeCalls int
	RefreshCalls  int
	RevokeCalls   int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (p *FakeProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	if p.AuthCodeURLFunc != nil {
		return p.AuthCodeURLFunc(state, opts...)
	}
	return "https://provider.example.com/auth?state=" + state
}

func (p *FakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	p.lock.Lock()
	p.ExchangeCalls++
	p.lock.Unlock()

	if p.ExchangeFunc != nil {
		return p.ExchangeFunc(ctx, code)
	}
	return nil, errors.New("FakeProvider: ExchangeFunc not set")
}

func (p *FakeProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*authflow.Identity, error) {
	if p.VerifyIDTokenFunc != nil {
		return p.VerifyIDTokenFunc(ctx, rawIDToken)
	}
	return nil, errors.New("FakeProvider: VerifyIDTokenFunc not set")
}

func (p *FakeProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	p.lock.Lock()
	p.RefreshCalls++
	p.lock.Unlock()

	if p.RefreshFunc != nil {
		return p.RefreshFunc(ctx, refreshToken)
	}
	return nil, errors.New("FakeProvider: RefreshFunc not set")
}

func (p *FakeProvider) Revoke(ctx context.Context, token string) error {
	p.lock.Lock()
	p.RevokeCalls++
	p.lock.Unlock()

	if p.RevokeFunc != nil {
		return p.RevokeFunc(ctx, token)
	}
	return nil
}
