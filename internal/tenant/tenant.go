// Package tenant maps a request host and path to the operator application or to a
// published owner collection. Resolution depends only on the URL, never on session state.
package tenant

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/binyominzeev/vidfaq/pkg/models"
)

// Kind is the outcome of host resolution
type Kind int

const (
	KindOperator Kind = iota
	KindTenant
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindOperator:
		return "operator"
	case KindTenant:
		return "tenant"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// RouteKind selects the tenant view
type RouteKind int

const (
	RouteGallery RouteKind = iota
	RouteVideo
)

// Route is the second-stage routing result inside a tenant
type Route struct {
	Kind RouteKind
	Slug string
}

// Resolution is the result of Resolve
type Resolution struct {
	Kind      Kind
	Subdomain string
	Profile   *models.OwnerProfile
	Path      string
	Route     Route
}

// ProfileLookup finds the profile that claimed a subdomain, or nil when none did
type ProfileLookup interface {
	GetProfileBySubdomain(ctx context.Context, subdomain string) (*models.OwnerProfile, error)
}

// DefaultOperatorLabels are first labels that always serve the operator application
var DefaultOperatorLabels = []string{"app", "vidfaq"}

// Resolver resolves hosts against claimed subdomains
type Resolver struct {
	lookup         ProfileLookup
	operatorLabels map[string]struct{}
}

// NewResolver creates a resolver. "www" is always treated as an operator label.
func NewResolver(lookup ProfileLookup, operatorLabels []string) *Resolver {
	if len(operatorLabels) == 0 {
		operatorLabels = DefaultOperatorLabels
	}

	labels := map[string]struct{}{"www": {}}
	for _, l := range operatorLabels {
		labels[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}

	return &Resolver{
		lookup:         lookup,
		operatorLabels: labels,
	}
}

// IsReserved reports whether label can never be claimed as a subdomain
func (r *Resolver) IsReserved(label string) bool {
	_, ok := r.operatorLabels[strings.ToLower(label)]
	return ok
}

// Classify splits host into its candidate subdomain. ok is false for operator hosts.
func (r *Resolver) Classify(host string) (subdomain string, ok bool) {
	host = NormalizeHost(host)
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return "", false
	}
	if r.IsReserved(labels[0]) || labels[0] == "" {
		return "", false
	}

	return labels[0], true
}

// Resolve classifies host and looks up the tenant that owns its subdomain.
// An unclaimed subdomain yields KindNotFound, not an error.
func (r *Resolver) Resolve(ctx context.Context, host, path string) (*Resolution, error) {
	subdomain, ok := r.Classify(host)
	if !ok {
		return &Resolution{Kind: KindOperator, Path: path}, nil
	}

	res := &Resolution{Subdomain: subdomain, Path: path}

	profile, err := r.lookup.GetProfileBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subdomain %s: %w", subdomain, err)
	}
	if profile == nil {
		res.Kind = KindNotFound
		return res, nil
	}

	res.Kind = KindTenant
	res.Profile = profile
	res.Route = RoutePath(path)
	return res, nil
}

// RoutePath maps a tenant path to the gallery or a single video.
// Paths deeper than one segment fall back to the gallery.
func RoutePath(path string) Route {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return Route{Kind: RouteGallery}
	}
	return Route{Kind: RouteVideo, Slug: trimmed}
}

// NormalizeHost lowercases host and strips the port and trailing dot
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return strings.TrimSuffix(strings.ToLower(host), ".")
}
