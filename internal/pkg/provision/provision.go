// Package provision bridges billing to the RouterOS client. It resolves the
// active device lazily so the application starts even when no router is
// configured yet; provisioning attempts then fail with a clear error and land
// on the retry queue.
package provision

import (
	"context"
	"fmt"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/internal/pkg/billing"
	"github.com/ardikapras/netbill/internal/pkg/routeros"
)

// RouterProvisioner implements billing.Provisioner on top of the resolved
// RouterOS device.
type RouterProvisioner struct {
	resolver *routeros.Resolver
}

func NewRouterProvisioner(resolver *routeros.Resolver) *RouterProvisioner {
	return &RouterProvisioner{resolver: resolver}
}

// EnsureAccount creates or updates the device account. Safe to call again
// with the same name; the device-side secret converges on the given state.
func (p *RouterProvisioner) EnsureAccount(ctx context.Context, account billing.DeviceAccount) error {
	kind, err := serviceKind(account.Service)
	if err != nil {
		return err
	}

	client, err := p.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	_, err = client.EnsureAccount(ctx, kind, routeros.Account{
		Name:     account.Name,
		Password: account.Password,
		Profile:  account.Profile,
		Comment:  account.Comment,
	})
	if routeros.IsConnectivity(err) {
		// The cached client may point at a replaced or restarted device.
		p.resolver.Invalidate()
	}
	return err
}

// DisableAccount flags the device account disabled without deleting it, so an
// expired subscriber can be reactivated with the same credentials.
func (p *RouterProvisioner) DisableAccount(ctx context.Context, service, name string) error {
	kind, err := serviceKind(service)
	if err != nil {
		return err
	}

	client, err := p.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	secret, err := client.FindSecretByName(ctx, kind, name)
	if err != nil {
		if routeros.IsConnectivity(err) {
			p.resolver.Invalidate()
		}
		return err
	}
	if secret == nil {
		return nil
	}
	return client.SetSecretDisabled(ctx, kind, secret.ID, true)
}

func serviceKind(service string) (routeros.ServiceKind, error) {
	switch service {
	case models.ServiceTypePPPoE:
		return routeros.ServicePPPoE, nil
	case models.ServiceTypeHotspot:
		return routeros.ServiceHotspot, nil
	default:
		return "", fmt.Errorf("provision: unknown service type %q", service)
	}
}
